package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
)

const queueAlreadyExists = "QueueAlreadyExists"

// Provision creates the configured tables and the events queue when they do
// not exist yet.
func Provision(ctx context.Context, connStr string, tables Tables, eventsQueue string) error {
	log.Info("storage provisioning starting")
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return err
	}
	for _, name := range tables.names() {
		_, err := svc.NewClient(name).CreateTable(ctx, nil)
		if err != nil && !alreadyExists(err, string(aztables.TableAlreadyExists)) {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}
	if eventsQueue != "" {
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, eventsQueue, nil)
		if err != nil {
			return err
		}
		if _, err := q.Create(ctx, nil); err != nil && !alreadyExists(err, queueAlreadyExists) {
			return fmt.Errorf("create queue %s: %w", eventsQueue, err)
		}
	}
	log.Info("storage provisioning complete")
	return nil
}

func (t Tables) names() []string {
	out := make([]string, 0, 5)
	for _, name := range []string{t.Items, t.Funnels, t.Conversations, t.Users, t.Attachments} {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func alreadyExists(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}
