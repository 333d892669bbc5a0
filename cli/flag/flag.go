package flag

// Set contains the values of every CLI flag.
type Set struct {
	Server              string
	LogLevel            string
	Json                bool
	PartitionCount      int32
	Partition           int32
	Version             int32
	WorkflowKey         int64
	WorkflowInstanceKey int64
	ActivityInstanceKey int64
	Position            int64
	Payload             string
	Timeout             string
	Embedded            bool
	NatsConfig          string
	JetStreamDomain     string
}

// Value contains the parsed flag values.
var Value Set

const (
	Server                   = "server"
	ServerShort              = "u"
	LogLevel                 = "loglevel"
	LogLevelShort            = "l"
	JsonOutput               = "json"
	JsonOutputShort          = "j"
	PartitionCount           = "partitions"
	Partition                = "partition"
	PartitionShort           = "p"
	Version                  = "version"
	VersionShort             = "v"
	WorkflowKey              = "workflow-key"
	WorkflowKeyShort         = "k"
	WorkflowInstanceKey      = "instance"
	WorkflowInstanceKeyShort = "i"
	ActivityInstanceKey      = "activity"
	ActivityInstanceKeyShort = "a"
	Position                 = "position"
	Payload                  = "payload"
	PayloadShort             = "d"
	Timeout                  = "timeout"
	Embedded                 = "embedded"
	NatsConfig               = "nats-config"
	JetStreamDomain          = "jetstream-domain"
)
