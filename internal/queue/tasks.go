package queue

import (
	"encoding/json"
	"time"

	"github.com/dujiao-next/foodcart/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCartSnapshotPersist 购物车快照落库任务
	TaskCartSnapshotPersist = constants.TaskCartSnapshotPersist
	// TaskCartSnapshotDelete 购物车快照删除任务
	TaskCartSnapshotDelete = constants.TaskCartSnapshotDelete
)

// CartSnapshotPersistPayload 购物车快照落库任务载荷
type CartSnapshotPersistPayload struct {
	Key       string          `json:"key"`
	Revision  int64           `json:"revision"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CartSnapshotDeletePayload 购物车快照删除任务载荷
type CartSnapshotDeletePayload struct {
	Key      string `json:"key"`
	Revision int64  `json:"revision"`
}

// NewCartSnapshotPersistTask 创建购物车快照落库任务
func NewCartSnapshotPersistTask(payload CartSnapshotPersistPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartSnapshotPersist, body), nil
}

// NewCartSnapshotDeleteTask 创建购物车快照删除任务
func NewCartSnapshotDeleteTask(payload CartSnapshotDeletePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartSnapshotDelete, body), nil
}
