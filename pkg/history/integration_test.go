//go:build integration

package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest) string {
	t.Helper()
	ctx := context.Background()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	endpoint, err := ctr.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestPostgresStore(t *testing.T) {
	endpoint := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "phi",
			"POSTGRES_PASSWORD": "phi",
			"POSTGRES_DB":       "phi",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})

	s, err := NewSQLStore(context.Background(), DriverNamePostgres, "postgres://phi:phi@"+endpoint+"/phi?sslmode=disable")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestMongoStore(t *testing.T) {
	endpoint := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	})

	s, err := NewMongoStore(context.Background(), "mongodb://"+endpoint, "phi_test")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}
