package depot

type factory struct{}

// Factory is the package entry point for constructing depot values.
var Factory factory

func (f factory) NewStorage(opts ...StorageOption) *Storage {
	return newStorage(opts...)
}

func (f factory) NewQuery() *Query {
	return newQuery()
}

func (f factory) NewCursor(plan *QueryPlan, sto *Storage) *Cursor {
	return newCursor(plan, sto)
}

func (f factory) NewScheduler(sto *Storage, opts ...SchedulerOption) *Scheduler {
	return newScheduler(sto, opts...)
}

func (f factory) NewCommandBuffer() *CommandBuffer {
	return newCommandBuffer()
}
