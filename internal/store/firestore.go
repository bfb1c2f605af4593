package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore collection names, matching the mobile client's layout.
const (
	photosCollection    = "photos"
	darkroomsCollection = "darkrooms"

	// maxFirestoreBatch is the Firestore write batch limit.
	maxFirestoreBatch = 500
)

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

var _ Store = (*FirestoreStore)(nil)

// NewFirestoreStore wraps an initialized Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// firestoreUpdates renders a PhotoUpdate as a Firestore field update list.
func firestoreUpdates(u PhotoUpdate) []firestore.Update {
	var updates []firestore.Update
	if u.Status != nil {
		updates = append(updates, firestore.Update{Path: "status", Value: string(*u.Status)})
	}
	if u.PhotoState != nil {
		updates = append(updates, firestore.Update{Path: "photoState", Value: string(*u.PhotoState)})
	}
	if u.Month != nil {
		updates = append(updates, firestore.Update{Path: "month", Value: *u.Month})
	}
	if u.RevealedAt != nil {
		updates = append(updates, firestore.Update{Path: "revealedAt", Value: *u.RevealedAt})
	}
	if u.ScheduledForPermanentDeletionAt != nil {
		updates = append(updates, firestore.Update{Path: "scheduledForPermanentDeletionAt", Value: *u.ScheduledForPermanentDeletionAt})
	}
	if u.TaggedUserIDs != nil {
		updates = append(updates, firestore.Update{Path: "taggedUserIds", Value: u.TaggedUserIDs})
	}
	if u.Reactions != nil {
		updates = append(updates, firestore.Update{Path: "reactions", Value: u.Reactions})
	}
	if u.ReactionCount != nil {
		updates = append(updates, firestore.Update{Path: "reactionCount", Value: *u.ReactionCount})
	}
	return updates
}

func (s *FirestoreStore) GetPhoto(ctx context.Context, photoID string) (*Photo, error) {
	snap, err := s.client.Collection(photosCollection).Doc(photoID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while reading photo %q: %w", photoID, err)
	}

	photo := &Photo{}
	if err := snap.DataTo(photo); err != nil {
		return nil, fmt.Errorf("while unmarshaling photo %q: %w", photoID, err)
	}
	photo.ID = snap.Ref.ID
	return photo, nil
}

func (s *FirestoreStore) PutPhoto(ctx context.Context, photo *Photo) error {
	if _, err := s.client.Collection(photosCollection).Doc(photo.ID).Set(ctx, photo); err != nil {
		return fmt.Errorf("while storing photo %q: %w", photo.ID, err)
	}
	log.Debug().Str("photoId", photo.ID).Str("userId", photo.UserID).Msg("Photo persisted to Firestore")
	return nil
}

func (s *FirestoreStore) UpdatePhoto(ctx context.Context, photoID string, u PhotoUpdate) error {
	updates := firestoreUpdates(u)
	if len(updates) == 0 {
		return nil
	}
	_, err := s.client.Collection(photosCollection).Doc(photoID).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("while updating photo %q: %w", photoID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("while updating photo %q: %w", photoID, err)
	}
	return nil
}

func (s *FirestoreStore) QueryPhotos(ctx context.Context, userID string, st Status) ([]*Photo, error) {
	iter := s.client.Collection(photosCollection).
		Where("userId", "==", userID).
		Where("status", "==", string(st)).
		Documents(ctx)
	defer iter.Stop()

	var photos []*Photo
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while querying %s photos for %q: %w", st, userID, err)
		}

		photo := &Photo{}
		if err := snap.DataTo(photo); err != nil {
			log.Warn().Err(err).Str("photoId", snap.Ref.ID).Msg("Failed to unmarshal photo, skipping")
			continue
		}
		photo.ID = snap.Ref.ID
		photos = append(photos, photo)
	}
	return photos, nil
}

// BatchUpdatePhotos commits patches in write batches of 500. Each batch is
// atomic; a failure reports how many earlier batches landed.
func (s *FirestoreStore) BatchUpdatePhotos(ctx context.Context, patches []PhotoPatch) error {
	photos := s.client.Collection(photosCollection)
	applied := 0
	for i := 0; i < len(patches); i += maxFirestoreBatch {
		end := i + maxFirestoreBatch
		if end > len(patches) {
			end = len(patches)
		}

		batch := s.client.Batch()
		writes := 0
		for _, patch := range patches[i:end] {
			updates := firestoreUpdates(patch.Update)
			if len(updates) == 0 {
				continue
			}
			batch.Update(photos.Doc(patch.PhotoID), updates)
			writes++
		}
		if writes > 0 {
			if _, err := batch.Commit(ctx); err != nil {
				if status.Code(err) == codes.NotFound {
					err = ErrNotFound
				}
				return &BatchError{Applied: applied, Total: len(patches), Err: err}
			}
		}
		applied = end
	}
	return nil
}

func (s *FirestoreStore) GetDarkroom(ctx context.Context, userID string) (*Darkroom, error) {
	snap, err := s.client.Collection(darkroomsCollection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while reading darkroom %q: %w", userID, err)
	}

	d := &Darkroom{}
	if err := snap.DataTo(d); err != nil {
		return nil, fmt.Errorf("while unmarshaling darkroom %q: %w", userID, err)
	}
	d.UserID = userID
	return d, nil
}

func (s *FirestoreStore) PutDarkroom(ctx context.Context, d *Darkroom) error {
	if _, err := s.client.Collection(darkroomsCollection).Doc(d.UserID).Set(ctx, d); err != nil {
		return fmt.Errorf("while storing darkroom %q: %w", d.UserID, err)
	}
	log.Debug().Str("userId", d.UserID).Msg("Darkroom persisted to Firestore")
	return nil
}
