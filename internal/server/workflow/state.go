package workflow

import "github.com/rtenhove/zeebe/model"

// instance is the runtime view of a running workflow instance.
type instance struct {
	tokens              int
	activityInstanceKey int64
	position            int64
	workflowKey         int64
}

// instanceIndex holds every running workflow instance of the partition by its key.
type instanceIndex struct {
	instances map[int64]*instance
}

func newInstanceIndex() *instanceIndex {
	return &instanceIndex{instances: make(map[int64]*instance)}
}

func (x *instanceIndex) add(key int64, position int64, workflowKey int64) *instance {
	inst := &instance{
		tokens:              1,
		activityInstanceKey: model.NoKey,
		position:            position,
		workflowKey:         workflowKey,
	}
	x.instances[key] = inst
	return inst
}

func (x *instanceIndex) get(key int64) (*instance, bool) {
	inst, ok := x.instances[key]
	return inst, ok
}

// isActive reports whether the instance exists and still holds a token.
func (x *instanceIndex) isActive(key int64) bool {
	inst, ok := x.instances[key]
	return ok && inst.tokens > 0
}

func (x *instanceIndex) remove(key int64) {
	delete(x.instances, key)
}

func (x *instanceIndex) len() int {
	return len(x.instances)
}

// activity is an open service task of a workflow instance.
type activity struct {
	activityID string
	jobKey     int64
}

// activityMap holds the open activity instances by activity instance key.
type activityMap struct {
	activities map[int64]*activity
}

func newActivityMap() *activityMap {
	return &activityMap{activities: make(map[int64]*activity)}
}

func (m *activityMap) add(key int64, activityID string) {
	m.activities[key] = &activity{activityID: activityID, jobKey: model.NoKey}
}

func (m *activityMap) get(key int64) (*activity, bool) {
	a, ok := m.activities[key]
	return a, ok
}

// jobKey returns the job open for an activity instance, or NoKey.
func (m *activityMap) jobKey(key int64) int64 {
	if a, ok := m.activities[key]; ok {
		return a.jobKey
	}
	return model.NoKey
}

func (m *activityMap) remove(key int64) {
	delete(m.activities, key)
}

func (m *activityMap) len() int {
	return len(m.activities)
}

// keyGenerator hands out the keys of new entities on a partition.
// Keys embed the partition id so that they are unique across partitions.
type keyGenerator struct {
	partition int64
	counter   int64
}

const keyPartitionBits = 51

func newKeyGenerator(partitionID int32) *keyGenerator {
	return &keyGenerator{partition: int64(partitionID) << keyPartitionBits}
}

func (g *keyGenerator) nextKey() int64 {
	g.counter++
	return g.partition | g.counter
}

// PartitionOfKey returns the partition that generated a key.
func PartitionOfKey(key int64) int32 {
	return int32(key >> keyPartitionBits)
}
