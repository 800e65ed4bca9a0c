package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskKitchenTicket is the asynq task type carrying an order event to the
// kitchen worker.
const TaskKitchenTicket = "kitchen:ticket"

// LogNotifier writes every event to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Logger.Info().
		Str("event_id", ev.ID.String()).
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID).
		Msg("domain event emitted")
	return nil
}

// Enqueuer is the subset of *asynq.Client used by TaskNotifier.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskNotifier forwards events on the selected topics to the kitchen queue.
type TaskNotifier struct {
	Client   Enqueuer
	Topics   []string
	Queue    string
	MaxRetry int
}

// Notify implements Notifier.
func (n TaskNotifier) Notify(ctx context.Context, ev Event) error {
	if n.Client == nil || !n.wants(ev.Topic) {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	opts := []asynq.Option{
		asynq.TaskID(ev.ID.String()),
		asynq.Timeout(30 * time.Second),
	}
	if n.Queue != "" {
		opts = append(opts, asynq.Queue(n.Queue))
	}
	if n.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(n.MaxRetry))
	}
	if _, err := n.Client.EnqueueContext(ctx, asynq.NewTask(TaskKitchenTicket, payload), opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskKitchenTicket, err)
	}
	return nil
}

func (n TaskNotifier) wants(topic string) bool {
	topics := n.Topics
	if len(topics) == 0 {
		topics = DefaultTopics()
	}
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

// DecodeTask extracts the event carried by a kitchen ticket task.
func DecodeTask(task *asynq.Task) (Event, error) {
	var ev Event
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", task.Type(), err)
	}
	return ev, nil
}
