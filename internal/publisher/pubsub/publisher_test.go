package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublisherPublish(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, srv := newTestClient(t)
	_, err := client.CreateTopic(ctx, "sync-progress")
	require.NoError(t, err)

	pub := NewWithClient(client, "sync-progress")
	defer func() { require.NoError(t, pub.Close()) }()

	id, err := pub.Publish(ctx, "", map[string]string{"run_id": "r1", "stage": "RUN_DONE"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	require.Equal(t, "r1", payload["run_id"])
}

func TestPublisherErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t)

	_, err := NewWithClient(client, "").Publish(ctx, "", "x")
	require.ErrorContains(t, err, "no pubsub topic")

	_, err = NewWithClient(client, "missing-topic").Publish(ctx, "", "x")
	require.Error(t, err)

	_, err = NewWithClient(client, "t").Publish(ctx, "", func() {})
	require.ErrorContains(t, err, "marshal payload")

	var nilPub *Publisher
	_, err = nilPub.Publish(ctx, "t", "x")
	require.Error(t, err)

	_, err = New(ctx, "", "t")
	require.Error(t, err)
}
