package server_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordoze/nanogit/protocol/hash"
	"github.com/tordoze/nanogit/protocol/server"
)

func TestNegotiator_WantUnknownObject(t *testing.T) {
	repo := newFakeRepository()
	n := server.NewNegotiator(repo, true)

	missing := hash.MustFromHex("0123456789012345678901234567890123456789")
	_, err := n.FeedLine(context.TODO(), "want "+missing.String())
	require.Error(t, err)
	require.ErrorIs(t, err, server.ErrUnknownWant)
}

func TestNegotiator_WantKnownObject(t *testing.T) {
	repo := newFakeRepository()
	blob := repo.putBlob([]byte("content"))

	n := server.NewNegotiator(repo, true)
	lines, err := n.FeedLine(context.TODO(), "want "+blob.String())
	require.NoError(t, err)
	require.Empty(t, lines)
	require.Equal(t, server.StateReadingWants, n.State())
	require.Equal(t, []hash.Hash{blob}, n.Wants())
}

func TestNegotiator_HaveCommon_MultiAck(t *testing.T) {
	repo := newFakeRepository()
	blob := repo.putBlob([]byte("shared"))

	n := server.NewNegotiator(repo, true)
	lines, err := n.FeedLine(context.TODO(), "have "+blob.String())
	require.NoError(t, err)
	require.Contains(t, lines[0], "ACK "+blob.String()+" common")
	require.Equal(t, server.StateAckPolicy, n.State())
}

func TestNegotiator_HaveUnknown_NoAck(t *testing.T) {
	repo := newFakeRepository()
	n := server.NewNegotiator(repo, true)

	missing := hash.MustFromHex("0123456789012345678901234567890123456789")
	lines, err := n.FeedLine(context.TODO(), "have "+missing.String())
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestNegotiator_Done_WithCommon(t *testing.T) {
	repo := newFakeRepository()
	blob := repo.putBlob([]byte("shared"))

	n := server.NewNegotiator(repo, true)
	_, err := n.FeedLine(context.TODO(), "have "+blob.String())
	require.NoError(t, err)

	lines, err := n.FeedLine(context.TODO(), "done")
	require.NoError(t, err)
	require.Equal(t, []string{"ACK " + blob.String()}, lines)
	require.Equal(t, server.StateDone, n.State())
}

func TestNegotiator_Done_NoCommon_NAK(t *testing.T) {
	repo := newFakeRepository()
	n := server.NewNegotiator(repo, true)

	lines, err := n.FeedLine(context.TODO(), "done")
	require.NoError(t, err)
	require.Equal(t, []string{"NAK"}, lines)
}

func TestNegotiator_MalformedLine(t *testing.T) {
	repo := newFakeRepository()
	n := server.NewNegotiator(repo, true)

	_, err := n.FeedLine(context.TODO(), "bogus line")
	require.ErrorIs(t, err, server.ErrMalformedNegotiation)
}

func TestNegotiator_ShallowAndDeepen(t *testing.T) {
	repo := newFakeRepository()
	blob := repo.putBlob([]byte("x"))

	n := server.NewNegotiator(repo, true)
	_, err := n.FeedLine(context.TODO(), "shallow "+blob.String())
	require.NoError(t, err)
	_, err = n.FeedLine(context.TODO(), "deepen 5")
	require.NoError(t, err)

	shallows := n.Shallows()
	require.Len(t, shallows, 2)
	require.Equal(t, server.ShallowMarker, shallows[0].Kind)
	require.Equal(t, server.DeepenMarker, shallows[1].Kind)
	require.Equal(t, 5, shallows[1].Depth)

	oids := n.ShallowOIDs()
	require.Len(t, oids, 1)
	require.Equal(t, blob.String(), oids[0].String())
}
