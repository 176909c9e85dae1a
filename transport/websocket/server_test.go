package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/Algoraver22/Chess-Game/internal/broadcast"
	"github.com/Algoraver22/Chess-Game/internal/chess"
	"github.com/Algoraver22/Chess-Game/internal/entity"
	"github.com/Algoraver22/Chess-Game/internal/repository"
	"github.com/Algoraver22/Chess-Game/internal/session"
	"github.com/Algoraver22/Chess-Game/internal/usecase"
	"github.com/Algoraver22/Chess-Game/testing/suite"
)

func wsURLFromHTTP(u string) string {
	return "ws" + strings.TrimPrefix(u, "http") + "/ws"
}

func startTestServer(t *testing.T) string {
	t.Helper()

	_, st := suite.New(t)

	oracle := chess.NewOracle()
	gameSession := session.New(oracle)
	coordinator := broadcast.New(st.Logger)
	gameRepo := repository.NewGameRepository(st.Storage)
	manager := usecase.NewSessionManager(st.Logger, gameSession, oracle, coordinator, gameRepo)

	server := httptest.NewServer(New(st.Logger, manager, coordinator).Handler())
	t.Cleanup(server.Close)

	return wsURLFromHTTP(server.URL)
}

func dial(ctx context.Context, t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	})

	return conn
}

func readMessage(ctx context.Context, t *testing.T, conn *websocket.Conn) broadcast.Message {
	t.Helper()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var message broadcast.Message
	require.NoError(t, json.Unmarshal(data, &message))
	return message
}

func readRole(ctx context.Context, t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	message := readMessage(ctx, t, conn)
	require.Equal(t, broadcast.ActionRole, message.Action)

	var payload broadcast.RolePayload
	require.NoError(t, json.Unmarshal(message.Payload, &payload))
	return payload.Role
}

func writeAction(ctx context.Context, t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	data, err := json.Marshal(broadcast.Message{Action: action, Payload: raw})
	require.NoError(t, err)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestServer_RolesAndGameStart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startTestServer(t)

	// When: two clients connect
	connA := dial(ctx, t, url)
	assert.Equal(t, entity.RoleWhite, readRole(ctx, t, connA))

	connB := dial(ctx, t, url)
	assert.Equal(t, entity.RoleBlack, readRole(ctx, t, connB))

	// Then: both see the start and the initial position
	for _, conn := range []*websocket.Conn{connA, connB} {
		assert.Equal(t, broadcast.ActionGameStarted, readMessage(ctx, t, conn).Action)

		message := readMessage(ctx, t, conn)
		require.Equal(t, broadcast.ActionPosition, message.Action)

		var payload broadcast.PositionPayload
		require.NoError(t, json.Unmarshal(message.Payload, &payload))
		assert.Contains(t, payload.FEN, " w ")
	}

	// And: a third client only spectates, with no second start broadcast
	connC := dial(ctx, t, url)
	assert.Equal(t, entity.RoleSpectator, readRole(ctx, t, connC))
}

func TestServer_MoveRelay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startTestServer(t)

	connA := dial(ctx, t, url)
	readRole(ctx, t, connA)
	connB := dial(ctx, t, url)
	readRole(ctx, t, connB)

	// drain the start sequence on both seats
	for _, conn := range []*websocket.Conn{connA, connB} {
		readMessage(ctx, t, conn)
		readMessage(ctx, t, conn)
	}

	connC := dial(ctx, t, url)
	readRole(ctx, t, connC)

	// When: white plays e2e4
	move := entity.Move{From: "e2", To: "e4"}
	writeAction(ctx, t, connA, ActionGameMove, move)

	// Then: everyone, mover and spectator included, sees the move then the position
	for _, conn := range []*websocket.Conn{connA, connB, connC} {
		message := readMessage(ctx, t, conn)
		require.Equal(t, broadcast.ActionMove, message.Action)

		var echoed entity.Move
		require.NoError(t, json.Unmarshal(message.Payload, &echoed))
		assert.Equal(t, move, echoed)

		message = readMessage(ctx, t, conn)
		require.Equal(t, broadcast.ActionPosition, message.Action)
	}

	// When: the spectator tries to move, then black replies
	writeAction(ctx, t, connC, ActionGameMove, entity.Move{From: "e7", To: "e5"})
	writeAction(ctx, t, connB, ActionGameMove, entity.Move{From: "e7", To: "e5"})

	// Then: the next event everyone sees is black's move, proving the
	// spectator's submission was dropped without a broadcast
	for _, conn := range []*websocket.Conn{connA, connB, connC} {
		message := readMessage(ctx, t, conn)
		require.Equal(t, broadcast.ActionMove, message.Action)

		var echoed entity.Move
		require.NoError(t, json.Unmarshal(message.Payload, &echoed))
		assert.Equal(t, "e7e5", echoed.UCI())

		readMessage(ctx, t, conn)
	}
}

func TestServer_InvalidMoveIsUnicast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startTestServer(t)

	connA := dial(ctx, t, url)
	readRole(ctx, t, connA)
	connB := dial(ctx, t, url)
	readRole(ctx, t, connB)

	for _, conn := range []*websocket.Conn{connA, connB} {
		readMessage(ctx, t, conn)
		readMessage(ctx, t, conn)
	}

	// When: white submits an illegal move
	writeAction(ctx, t, connA, ActionGameMove, entity.Move{From: "e2", To: "e5"})

	// Then: only white hears about it
	message := readMessage(ctx, t, connA)
	assert.Equal(t, broadcast.ActionInvalidMove, message.Action)

	// And: black's next event is the following legal move, not the rejection
	writeAction(ctx, t, connA, ActionGameMove, entity.Move{From: "e2", To: "e4"})
	message = readMessage(ctx, t, connB)
	assert.Equal(t, broadcast.ActionMove, message.Action)
}

func TestServer_NameExchange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startTestServer(t)

	connA := dial(ctx, t, url)
	readRole(ctx, t, connA)
	connB := dial(ctx, t, url)
	readRole(ctx, t, connB)

	for _, conn := range []*websocket.Conn{connA, connB} {
		readMessage(ctx, t, conn)
		readMessage(ctx, t, conn)
	}

	// When: white introduces themselves
	writeAction(ctx, t, connA, ActionPlayerName, NamePayload{Name: "Alice"})

	// Then: white gets black's placeholder and black gets "Alice"
	message := readMessage(ctx, t, connA)
	require.Equal(t, broadcast.ActionOpponentName, message.Action)

	var payload broadcast.OpponentNamePayload
	require.NoError(t, json.Unmarshal(message.Payload, &payload))
	assert.Equal(t, entity.DefaultBlackName, payload.Name)

	message = readMessage(ctx, t, connB)
	require.Equal(t, broadcast.ActionOpponentName, message.Action)
	require.NoError(t, json.Unmarshal(message.Payload, &payload))
	assert.Equal(t, "Alice", payload.Name)
}

func TestServer_DisconnectFreesSeat(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := startTestServer(t)

	connA := dial(ctx, t, url)
	readRole(ctx, t, connA)
	connB := dial(ctx, t, url)
	readRole(ctx, t, connB)

	for _, conn := range []*websocket.Conn{connA, connB} {
		readMessage(ctx, t, conn)
		readMessage(ctx, t, conn)
	}

	// When: white drops
	require.NoError(t, connA.Close(websocket.StatusNormalClosure, "bye"))

	// Then: the next joiner inherits the white seat instead of spectating
	require.Eventually(t, func() bool {
		probeCtx, probeCancel := context.WithTimeout(context.Background(), time.Second)
		defer probeCancel()

		conn, _, err := websocket.Dial(probeCtx, url, nil)
		if err != nil {
			return false
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		_, data, err := conn.Read(probeCtx)
		if err != nil {
			return false
		}

		var message broadcast.Message
		if err = json.Unmarshal(data, &message); err != nil {
			return false
		}

		var payload broadcast.RolePayload
		if err = json.Unmarshal(message.Payload, &payload); err != nil {
			return false
		}

		return payload.Role == entity.RoleWhite
	}, 3*time.Second, 100*time.Millisecond)
}
