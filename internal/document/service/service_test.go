package service

import (
	"context"
	"testing"

	"github.com/docgate/docgate/internal/document"
	"github.com/docgate/docgate/internal/document/repository"
	"github.com/docgate/docgate/internal/rules"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (Service, *repository.MemoryRepo) {
	t.Helper()
	repo := repository.NewMemoryRepo()
	return New(repo, rules.Default()), repo
}

func seed(t *testing.T, repo *repository.MemoryRepo, collection, id string, fields map[string]interface{}) {
	t.Helper()
	require.NoError(t, repo.Set(context.Background(), &document.Document{Collection: collection, ID: id, Fields: fields}))
}

func TestGetDeniedOnUndeclaredCollection(t *testing.T) {
	svc, repo := newService(t)
	seed(t, repo, "someRandomCollection", "id1", map[string]interface{}{"some": "data"})

	_, err := svc.Get(context.Background(), Anonymous, "someRandomCollection", "id1")
	require.ErrorIs(t, err, document.ErrPermissionDenied)
	require.NotErrorIs(t, err, document.ErrNotFound)
}

func TestGetAllowedThenNotFound(t *testing.T) {
	svc, _ := newService(t)

	// comments are readable by anyone; a missing doc must surface as
	// not-found, not as a deny
	_, err := svc.Get(context.Background(), Anonymous, "comments", "missing")
	require.ErrorIs(t, err, document.ErrNotFound)
	require.NotErrorIs(t, err, document.ErrPermissionDenied)
}

func TestSetRoutesCreateVersusUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	me := Identity{UID: "someUserId"}

	// create through the enforced path
	fields := map[string]interface{}{"some": "data", "uid": "someUserId"}
	require.NoError(t, svc.Set(ctx, me, "readAndCreateCollection", "id1", fields))

	// the same set again targets an existing doc, which makes it an update,
	// and updates are denied outright in this collection
	err := svc.Set(ctx, me, "readAndCreateCollection", "id1", fields)
	require.ErrorIs(t, err, document.ErrPermissionDenied)
}

func TestIdempotentSetWhereUpdateAllowed(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	me := Identity{UID: "myUser"}
	group := map[string]interface{}{"userIds": []interface{}{"myUser", "friendUser"}}

	require.NoError(t, svc.Set(ctx, me, "chatGroups", "g1", group))
	// repeating the identical set is an update the member is allowed to
	// make; stored state must be unchanged by the re-application
	require.NoError(t, svc.Set(ctx, me, "chatGroups", "g1", group))

	stored, err := repo.Get(ctx, "chatGroups", "g1")
	require.NoError(t, err)
	require.Equal(t, group["userIds"], stored.Fields["userIds"])
}

func TestAddGeneratesID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	me := Identity{UID: "logged_in_user"}

	id, err := svc.Add(ctx, me, "comments", map[string]interface{}{"some": "data", "uid": "logged_in_user"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := svc.Get(ctx, Anonymous, "comments", id)
	require.NoError(t, err)
	require.Equal(t, "data", got.Fields["some"])
}

func TestAddDeniedLeavesNoPartialEffect(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	_, err := svc.Add(ctx, Anonymous, "comments", map[string]interface{}{"some": "data", "uid": "logged_in_user"})
	require.ErrorIs(t, err, document.ErrPermissionDenied)

	all, err := repo.List(ctx, "comments", nil)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestListDenyOnAnyNotFilter(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepo()

	// a collection whose list predicate depends on each document: chat docs
	// readable only by members of the referenced group
	svc := New(repo, rules.Default())
	seed(t, repo, "chatGroups", "g1", map[string]interface{}{"userIds": []interface{}{"myUser"}})
	seed(t, repo, "chatGroups", "g2", map[string]interface{}{"userIds": []interface{}{"someoneElse"}})
	seed(t, repo, "readWriteIfUserIsInChatGroup", "c1", map[string]interface{}{"chatGroupId": "g1", "uid": "myUser"})
	seed(t, repo, "readWriteIfUserIsInChatGroup", "c2", map[string]interface{}{"chatGroupId": "g2", "uid": "someoneElse"})

	// one readable doc and one unreadable doc: the whole query is denied,
	// never a filtered partial result
	_, err := svc.List(ctx, Identity{UID: "myUser"}, "readWriteIfUserIsInChatGroup", nil)
	require.ErrorIs(t, err, document.ErrPermissionDenied)

	// narrowed to the readable doc the query is fine
	docs, err := svc.List(ctx, Identity{UID: "myUser"}, "readWriteIfUserIsInChatGroup",
		&document.Query{Filters: map[string]interface{}{"chatGroupId": "g1"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestListEmptyStillRequiresListableCollection(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	docs, err := svc.List(ctx, Anonymous, "readAndCreateCollection", nil)
	require.NoError(t, err)
	require.Empty(t, docs)

	_, err = svc.List(ctx, Anonymous, "someRandomCollection", nil)
	require.ErrorIs(t, err, document.ErrPermissionDenied)
}

func TestUpdateDeniedBeforeExistenceIsRevealed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	// update is denied in readAndCreateCollection whether or not the target
	// exists, so a missing target must not leak as not-found
	err := svc.Update(ctx, Identity{UID: "u1"}, "readAndCreateCollection", "missing", map[string]interface{}{"some": "x"})
	require.ErrorIs(t, err, document.ErrPermissionDenied)
}

func TestDeleteDeniedRegardlessOfIdentity(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	seed(t, repo, "readAndCreateCollection", "id1", map[string]interface{}{"some": "data", "uid": "owner"})

	for _, ident := range []Identity{Anonymous, {UID: "owner"}, {UID: "other"}} {
		err := svc.Delete(ctx, ident, "readAndCreateCollection", "id1")
		require.ErrorIs(t, err, document.ErrPermissionDenied, "uid=%q", ident.UID)
	}

	// still there
	_, err := repo.Get(ctx, "readAndCreateCollection", "id1")
	require.NoError(t, err)
}

func TestAuxiliaryLookupReadsLiveState(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	me := Identity{UID: "admin1"}
	seed(t, repo, "readIfUserIsAdminAndOwnerCollection", "d1", map[string]interface{}{"uid": "admin1"})

	// no users/admin1 doc yet: fail closed
	_, err := svc.Get(ctx, me, "readIfUserIsAdminAndOwnerCollection", "d1")
	require.ErrorIs(t, err, document.ErrPermissionDenied)

	seed(t, repo, "users", "admin1", map[string]interface{}{"uid": "admin1", "isAdmin": true})
	_, err = svc.Get(ctx, me, "readIfUserIsAdminAndOwnerCollection", "d1")
	require.NoError(t, err)
}
