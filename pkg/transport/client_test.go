package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lantos1618/better-ui-sub002/pkg/capability"
)

func TestClient_Execute(t *testing.T) {
	ts := testServer(t, testRegistry(t))
	client := NewClient(ts.URL, nil)

	output, err := client.Execute(context.Background(), "echo", map[string]interface{}{"message": "over the wire"})
	require.NoError(t, err)
	assert.Equal(t, "over the wire", output)
}

func TestClient_ExecuteErrors(t *testing.T) {
	ts := testServer(t, testRegistry(t))
	client := NewClient(ts.URL, nil)

	_, err := client.Execute(context.Background(), "ghost", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = client.Execute(context.Background(), "echo", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestClient_List(t *testing.T) {
	ts := testServer(t, testRegistry(t))
	client := NewClient(ts.URL+"/", nil)

	summaries, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "echo", summaries[0].Name)
}

func TestClient_Describe(t *testing.T) {
	ts := testServer(t, testRegistry(t))
	client := NewClient(ts.URL, nil)

	summary, err := client.Describe(context.Background(), "echo")
	require.NoError(t, err)
	assert.Equal(t, "Echoes a message", summary.Description)

	_, err = client.Describe(context.Background(), "ghost")
	require.Error(t, err)

	var notFound *capability.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Capability)
}

func TestClient_WithSession(t *testing.T) {
	ts := testServer(t, testRegistry(t))
	client := NewClient(ts.URL, nil).WithSession("sess-1")

	_, err := client.Execute(context.Background(), "echo", map[string]interface{}{"message": "x"})
	require.NoError(t, err)
}

func TestRemoteHandler(t *testing.T) {
	ts := testServer(t, testRegistry(t))
	client := NewClient(ts.URL, nil)

	handler := RemoteHandler(client, "echo")
	inv := capability.NewInvocation(capability.WithUntrustedOrigin())

	output, err := handler(context.Background(), map[string]interface{}{"message": "remote"}, inv)
	require.NoError(t, err)
	assert.Equal(t, "remote", output)

	// Second call with the same input is served from the invocation cache.
	ts.Close()
	output, err = handler(context.Background(), map[string]interface{}{"message": "remote"}, inv)
	require.NoError(t, err)
	assert.Equal(t, "remote", output)
}

func TestRemoteHandler_AsClientExecute(t *testing.T) {
	ts := testServer(t, testRegistry(t))
	client := NewClient(ts.URL, nil)

	proxy, err := capability.New[map[string]interface{}, interface{}]("echo").
		ClientExecuteHandler(RemoteHandler(client, "echo")).
		Build()
	require.NoError(t, err)

	inv := capability.NewInvocation(capability.WithUntrustedOrigin())
	output, err := capability.Run(context.Background(), proxy, map[string]interface{}{"message": "proxied"}, inv)
	require.NoError(t, err)
	assert.Equal(t, "proxied", output)
}

func TestHub_BroadcastWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())

	assert.Equal(t, 0, hub.Subscribers())
	hub.Broadcast(ExecutionEvent{Capability: "echo"})
	hub.Close()
	assert.Equal(t, 0, hub.Subscribers())
}

func TestHub_Subscribe(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())
	defer hub.Close()

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleUpgrade))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(ExecutionEvent{Capability: "echo", Status: "success"})

	var event ExecutionEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "echo", event.Capability)
	assert.Equal(t, "success", event.Status)
}

func TestClient_BaseURLTrimmed(t *testing.T) {
	client := NewClient("http://localhost:3001///", nil)
	assert.False(t, strings.HasSuffix(client.baseURL, "/"))
}
