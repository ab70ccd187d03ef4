package jobs

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/cologne-noir/decant/internal/orders"
)

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueSendEmail enqueues a send-email task.
func (c *Client) EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	task, err := NewSendEmailTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Enqueue submits a periodic task by name outside its schedule.
func (c *Client) Enqueue(ctx context.Context, name, trigger string) (*asynq.TaskInfo, error) {
	task, err := NewTask(name, trigger)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// EnqueueTask submits a prepared task on the default queue.
func (c *Client) EnqueueTask(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	opts = append([]asynq.Option{asynq.Queue(QueueDefault)}, opts...)
	return c.client.EnqueueContext(ctx, task, opts...)
}

// OrderPlaced enqueues the confirmation mail. Orders without a contact email
// are skipped.
func (c *Client) OrderPlaced(ctx context.Context, order orders.Order) error {
	if order.ShippingAddress.Email == "" {
		return nil
	}
	_, err := c.EnqueueSendEmail(ctx, OrderConfirmation(order))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
