package repository

import (
	"context"

	"chatsync/internal/adapter/docstore"
	"chatsync/internal/domain/entity"
	"chatsync/internal/domain/repository"
)

const usersPath = "users"

type docProfileRepository struct {
	store docstore.Store
}

// NewProfileRepository reads identity snapshots from the users collection.
// Callers take the snapshot once, at conversation creation or membership
// addition, and never refresh it.
func NewProfileRepository(store docstore.Store) repository.ProfileRepository {
	return &docProfileRepository{store: store}
}

func (r *docProfileRepository) GetProfile(ctx context.Context, userID string) (*entity.MemberProfile, error) {
	snap, err := r.store.Get(ctx, usersPath, userID)
	if err != nil {
		return nil, wrapStoreErr("User", err)
	}
	return &entity.MemberProfile{
		DisplayName: docString(snap.Data, "displayName"),
		PhotoURL:    docString(snap.Data, "photoUrl"),
	}, nil
}
