package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/secureshare/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedFilesService_Listings(t *testing.T) {
	vault, m, mock := newVaultFixture(t)
	svc := NewSharedFilesService(vault.db, m)

	alice := addTestUser(t, m, "alice")
	addTestUser(t, m, "bob")
	addTestUser(t, m, "carol")

	id := mustUpload(t, vault, mock, alice, []byte("data"))
	mustShare(t, vault, mock, id, alice, "bob")
	mustShare(t, vault, mock, id, alice, "carol")

	out, err := svc.ListSharedByMe(context.Background(), alice.ID, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "alice", out[0].Sender)
	assert.ElementsMatch(t, []string{"bob", "carol"}, []string{out[0].Recipient, out[1].Recipient})

	in, err := svc.ListSharedToMe(context.Background(), "bob-id", nil)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "alice", in[0].Sender)
	assert.Equal(t, "bob", in[0].Recipient)

	in, err = svc.ListSharedToMe(context.Background(), alice.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, in)
}

func TestSharedFilesService_SensitivityFilter(t *testing.T) {
	vault, m, mock := newVaultFixture(t)
	svc := NewSharedFilesService(vault.db, m)

	alice := addTestUser(t, m, "alice")
	addTestUser(t, m, "bob")

	id := mustUpload(t, vault, mock, alice, []byte("data"))
	mustShare(t, vault, mock, id, alice, "bob")

	sensitive := true
	out, err := svc.ListSharedByMe(context.Background(), alice.ID, &sensitive)
	require.NoError(t, err)
	assert.Empty(t, out)

	sensitive = false
	out, err = svc.ListSharedByMe(context.Background(), alice.ID, &sensitive)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestSharedFilesService_ListRecipients(t *testing.T) {
	vault, m, mock := newVaultFixture(t)
	svc := NewSharedFilesService(vault.db, m)

	alice := addTestUser(t, m, "alice")
	addTestUser(t, m, "bob")
	addTestUser(t, m, "carol")
	mallory := addTestUser(t, m, "mallory")

	id := mustUpload(t, vault, mock, alice, []byte("data"))
	bobCopy := mustShare(t, vault, mock, id, alice, "bob")
	mustShare(t, vault, mock, id, alice, "carol")

	names, err := svc.ListRecipients(context.Background(), id, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, names)

	_, err = svc.ListRecipients(context.Background(), id, mallory.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	// a copy is not a lineage root, even for its owner
	_, err = svc.ListRecipients(context.Background(), bobCopy, "bob-id")
	assert.ErrorIs(t, err, common.ErrForbidden)
}
