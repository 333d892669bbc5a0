package option

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rtenhove/zeebe/internal/server/workflow"
)

// ServerOptions contains settings that control various aspects of the partition processor's operation and behaviour
type ServerOptions struct {
	NatsUrl               string
	NatsConnOptions       []nats.Option
	JetStreamDomain       string
	EphemeralStorage      bool
	PartitionID           int32
	PartitionCount        int32
	Topic                 string
	PayloadCacheSize      int
	WorkflowCacheSize     int64
	CorrelationKeyFailure workflow.CorrelationKeyFailure
	LookupTimeout         time.Duration
	LockInterval          time.Duration
	TelemetryEndpoint     string
	ShowSplash            bool
	HandleSignals         bool
}

// Defaults returns the options a server starts from before any Option is applied.
func Defaults() *ServerOptions {
	return &ServerOptions{
		NatsUrl:               nats.DefaultURL,
		PartitionID:           1,
		PartitionCount:        1,
		Topic:                 workflow.DefaultTopic,
		PayloadCacheSize:      1000,
		WorkflowCacheSize:     1000,
		CorrelationKeyFailure: workflow.CorrelationKeyIncident,
		LookupTimeout:         10 * time.Second,
		LockInterval:          5 * time.Second,
		HandleSignals:         true,
	}
}

// Option represents a server option
type Option interface {
	Configure(serverOptions *ServerOptions)
}

// NatsUrl specifies the nats URL to connect to
func NatsUrl(url string) natsUrlOption { //nolint
	return natsUrlOption{value: url}
}

type natsUrlOption struct{ value string }

func (o natsUrlOption) Configure(serverOptions *ServerOptions) {
	serverOptions.NatsUrl = o.value
}

// NatsConnOptions passes extra options to every NATS connection the server opens.
func NatsConnOptions(opts ...nats.Option) natsConnOptions { //nolint
	return natsConnOptions{value: opts}
}

type natsConnOptions struct{ value []nats.Option }

func (o natsConnOptions) Configure(serverOptions *ServerOptions) {
	serverOptions.NatsConnOptions = append(serverOptions.NatsConnOptions, o.value...)
}

// WithJetStreamDomain connects to JetStream in the given domain.
func WithJetStreamDomain(jsDomain string) jetStreamDomainOption { //nolint
	return jetStreamDomainOption{value: jsDomain}
}

type jetStreamDomainOption struct{ value string }

func (o jetStreamDomainOption) Configure(serverOptions *ServerOptions) {
	serverOptions.JetStreamDomain = o.value
}

// EphemeralStorage keeps the partition logs and buckets in memory.
func EphemeralStorage(enabled bool) ephemeralStorageOption { //nolint
	return ephemeralStorageOption{value: enabled}
}

type ephemeralStorageOption struct{ value bool }

func (o ephemeralStorageOption) Configure(serverOptions *ServerOptions) {
	serverOptions.EphemeralStorage = o.value
}

// Partition selects the partition this server processes and the number of partitions in the cluster.
func Partition(id int32, count int32) partitionOption { //nolint
	return partitionOption{id: id, count: count}
}

type partitionOption struct{ id, count int32 }

func (o partitionOption) Configure(serverOptions *ServerOptions) {
	serverOptions.PartitionID = o.id
	serverOptions.PartitionCount = o.count
}

// Topic names the log in the event metrics.
func Topic(name string) topicOption { //nolint
	return topicOption{value: name}
}

type topicOption struct{ value string }

func (o topicOption) Configure(serverOptions *ServerOptions) {
	serverOptions.Topic = o.value
}

// PayloadCacheSize bounds the number of instance payloads kept in memory.
func PayloadCacheSize(n int) payloadCacheSizeOption { //nolint
	return payloadCacheSizeOption{value: n}
}

type payloadCacheSizeOption struct{ value int }

func (o payloadCacheSizeOption) Configure(serverOptions *ServerOptions) {
	serverOptions.PayloadCacheSize = o.value
}

// WorkflowCacheSize bounds the number of parsed workflows kept in memory.
func WorkflowCacheSize(n int64) workflowCacheSizeOption { //nolint
	return workflowCacheSizeOption{value: n}
}

type workflowCacheSizeOption struct{ value int64 }

func (o workflowCacheSizeOption) Configure(serverOptions *ServerOptions) {
	serverOptions.WorkflowCacheSize = o.value
}

// WithCorrelationKeyFailure selects what happens when a correlation key cannot be extracted.
func WithCorrelationKeyFailure(mode workflow.CorrelationKeyFailure) correlationKeyFailureOption { //nolint
	return correlationKeyFailureOption{value: mode}
}

type correlationKeyFailureOption struct {
	value workflow.CorrelationKeyFailure
}

func (o correlationKeyFailureOption) Configure(serverOptions *ServerOptions) {
	serverOptions.CorrelationKeyFailure = o.value
}

// LookupTimeout bounds a single workflow lookup request.
func LookupTimeout(d time.Duration) lookupTimeoutOption { //nolint
	return lookupTimeoutOption{value: d}
}

type lookupTimeoutOption struct{ value time.Duration }

func (o lookupTimeoutOption) Configure(serverOptions *ServerOptions) {
	serverOptions.LookupTimeout = o.value
}

// WithTelemetryEndpoint exports spans to the endpoint. "console" prints them to stdout.
func WithTelemetryEndpoint(endpoint string) telemetryEndpointOption { //nolint
	return telemetryEndpointOption{endpoint: endpoint}
}

type telemetryEndpointOption struct {
	endpoint string
}

func (o telemetryEndpointOption) Configure(serverOptions *ServerOptions) {
	serverOptions.TelemetryEndpoint = o.endpoint
}

// WithShowSplash specifies whether to show a splash screen on server startup.
// Enabling this option will make the splash screen be displayed.
func WithShowSplash() showSplashOption {
	return showSplashOption{showSplash: true}
}

type showSplashOption struct {
	showSplash bool
}

func (o showSplashOption) Configure(serverOptions *ServerOptions) {
	serverOptions.ShowSplash = o.showSplash
}

// WithoutSignalHandling stops Listen from reacting to SIGTERM and SIGINT. The caller shuts the server down.
func WithoutSignalHandling() signalHandlingOption { //nolint
	return signalHandlingOption{}
}

type signalHandlingOption struct{}

func (o signalHandlingOption) Configure(serverOptions *ServerOptions) {
	serverOptions.HandleSignals = false
}
