package memory

import (
	"github.com/viant/simos/model/task"
	"github.com/viant/simos/service/dao"
	"github.com/viant/simos/service/dao/criteria"
	"github.com/viant/simos/service/dao/store"
)

// Service keeps the last known state of every admitted task, ordered by id
type Service struct {
	*store.MemoryStore[int, task.Task]
}

var _ dao.Service[int, task.Task] = (*Service)(nil)

// New creates an in-memory task history
func New() *Service {
	return &Service{
		MemoryStore: store.NewMemoryStore[int, task.Task](
			func(t *task.Task) int { return t.ID },
			store.WithClone[int, task.Task]((*task.Task).Clone),
			store.WithFilter[int, task.Task](func(t *task.Task, parameters []*dao.Parameter) bool {
				return criteria.FilterByState(string(t.GetState()), parameters)
			}),
			store.WithOrder[int, task.Task](func(a, b *task.Task) bool { return a.ID < b.ID }),
		),
	}
}
