package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/limiter"
	"github.com/and161185/journal-keeper/internal/model"
	"github.com/and161185/journal-keeper/internal/repository"
)

type fakeKeys struct {
	byUser map[uuid.UUID]*model.UserKey

	createErr error
	getErr    error
	deleteErr error
	deleted   []uuid.UUID
}

var _ repository.KeyRepository = (*fakeKeys)(nil)

func (f *fakeKeys) CreateIfAbsent(_ context.Context, k *model.UserKey) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byUser == nil {
		f.byUser = map[uuid.UUID]*model.UserKey{}
	}
	if _, ok := f.byUser[k.UserID]; ok {
		return errs.ErrAlreadyExists
	}
	c := *k
	f.byUser[k.UserID] = &c
	return nil
}

func (f *fakeKeys) Get(_ context.Context, userID uuid.UUID) (*model.UserKey, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	k, ok := f.byUser[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *k
	return &c, nil
}

func (f *fakeKeys) PublicKey(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	k, err := f.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return k.PublicKey, nil
}

func (f *fakeKeys) Delete(_ context.Context, userID uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, userID)
	delete(f.byUser, userID)
	return nil
}

type fakeEntries struct {
	published   []model.PublishEntry
	publishErr  error
	unpublished []uuid.UUID

	getOut  *model.EntryWithGrant
	getErr  error
	listOut []model.EntryWithGrant

	putGrants  []model.Grant
	delGrants  [][3]uuid.UUID
	userGrants int64
	userErr    error
	calls      []string
}

var _ repository.EntryRepository = (*fakeEntries)(nil)

func (f *fakeEntries) Publish(_ context.Context, _ uuid.UUID, e model.PublishEntry) error {
	f.calls = append(f.calls, "publish")
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, e)
	return nil
}

func (f *fakeEntries) Unpublish(_ context.Context, _, entryID uuid.UUID) error {
	f.unpublished = append(f.unpublished, entryID)
	return nil
}

func (f *fakeEntries) GetForRecipient(_ context.Context, _, _ uuid.UUID) (*model.EntryWithGrant, error) {
	return f.getOut, f.getErr
}

func (f *fakeEntries) GetPublic(_ context.Context, _ uuid.UUID) (*model.EntryWithGrant, error) {
	return f.getOut, f.getErr
}

func (f *fakeEntries) ListSharedWith(_ context.Context, _ uuid.UUID) ([]model.EntryWithGrant, error) {
	return f.listOut, nil
}

func (f *fakeEntries) PutGrant(_ context.Context, _ uuid.UUID, g model.Grant) error {
	f.putGrants = append(f.putGrants, g)
	return nil
}

func (f *fakeEntries) DeleteGrant(_ context.Context, authorID, entryID, recipientID uuid.UUID) error {
	f.delGrants = append(f.delGrants, [3]uuid.UUID{authorID, entryID, recipientID})
	return nil
}

func (f *fakeEntries) DeleteUserGrants(_ context.Context, _ uuid.UUID) (int64, error) {
	f.calls = append(f.calls, "delete_user_grants")
	return f.userGrants, f.userErr
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error
	hits     int
	blockAt  int
	forgot   []uuid.UUID
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, uuid.UUID, []byte) (bool, time.Duration, error) {
	if l.allowErr != nil {
		return false, 0, l.allowErr
	}
	if l.blockAt > 0 && l.hits >= l.blockAt {
		return false, time.Minute, nil
	}
	return l.allowOK, 0, nil
}

func (l *fakeLimiter) Hit(context.Context, uuid.UUID, []byte) (bool, time.Duration, error) {
	l.hits++
	return l.blockAt > 0 && l.hits >= l.blockAt, time.Minute, nil
}

func (l *fakeLimiter) Forget(_ context.Context, userID uuid.UUID) error {
	l.forgot = append(l.forgot, userID)
	return nil
}
