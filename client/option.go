package client

import "time"

// ConfigurationOption represents a configuration option for the client.
type ConfigurationOption interface {
	configure(client *Client)
}

// WithPartitionCount tells the client how many partitions the cluster runs.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPartitionCount(n int32) partitionCount { //nolint
	return partitionCount{val: n}
}

type partitionCount struct {
	val int32
}

func (o partitionCount) configure(client *Client) {
	if o.val > 0 {
		client.partitionCount = o.val
	}
}

// WithPartition sends new instances to one partition instead of spreading them round robin.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPartition(id int32) partition { //nolint
	return partition{val: id}
}

type partition struct {
	val int32
}

func (o partition) configure(client *Client) {
	client.partition = o.val
}

// WithResponseTimeout bounds how long a command waits for the processor's response.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithResponseTimeout(d time.Duration) responseTimeout { //nolint
	return responseTimeout{val: d}
}

type responseTimeout struct {
	val time.Duration
}

func (o responseTimeout) configure(client *Client) {
	client.responseTimeout = o.val
}
