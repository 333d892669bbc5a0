package version

import version2 "github.com/hashicorp/go-version"

// Version is the semantic version of the processor. It is stamped onto the JetStream objects it creates.
var Version = "0.11.0"

// NatsVersion is the mandatory minimum version of NATS that is supported
var NatsVersion, _ = version2.NewVersion("v2.10.12")
