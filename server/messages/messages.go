package messages

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// PartitionStreamPrefix prefixes the name of every partition log stream.
	PartitionStreamPrefix = "ZEEBE_PARTITION_"
	// PartitionStreamTemplate is the name of a partition log stream.
	PartitionStreamTemplate = PartitionStreamPrefix + "%d"
	// PartitionSubject is the subject records of a partition are appended on.
	PartitionSubject = "zeebe.partition.%d"
	// PartitionSubjectAll matches the subjects of every partition.
	PartitionSubjectAll = "zeebe.partition.*"
	// SubscriptionStream holds open subscription commands for the message partitions.
	SubscriptionStream = "ZEEBE_MESSAGE_SUBSCRIPTION"
	// SubscriptionOpen is the subject an open subscription command for a message partition is sent on.
	SubscriptionOpen = "zeebe.message.%d.subscription.open"
	// ResponseSubject is the subject responses for a request stream are published on.
	ResponseSubject = "zeebe.response.%d"
	// DeploymentLookup is the request subject answered by the deployment service.
	DeploymentLookup = "zeebe.deployment.lookup"
	// DeploymentLookupQueue is the queue group of the deployment responders.
	DeploymentLookupQueue = "deployment"
)

const (
	KvWorkflow      = "ZEEBE_WORKFLOW"       // KvWorkflow is the name of the key value store that holds deployed workflows.
	KvPartitionLock = "ZEEBE_PARTITION_LOCK" // KvPartitionLock is the name of the key value store that elects a single processor per partition.
)

const (
	HeaderMsgID = "Nats-Msg-Id" // HeaderMsgID is the JetStream de-duplication header.
)

// PartitionStream returns the stream name of a partition log.
func PartitionStream(partitionID int32) string {
	return fmt.Sprintf(PartitionStreamTemplate, partitionID)
}

// PartitionFromStream is the reverse of PartitionStream.
func PartitionFromStream(name string) (int32, bool) {
	if !strings.HasPrefix(name, PartitionStreamPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(name, PartitionStreamPrefix), 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(id), true
}
