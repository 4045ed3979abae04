// Package offering implements the offering write path: coercing untyped form
// fields, reconciling attachment add/delete sets against persisted state, and
// applying one edit as a single all-or-nothing database transaction.
package offering

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/EricBellDesigns/blackplum-wealth-platform/models"
	"github.com/EricBellDesigns/blackplum-wealth-platform/pkg/blob"
)

// PageSize is the fixed page size of offering listings.
const PageSize = 6

// RawFile is one uploaded file as received from the request. Open must return
// a fresh reader each call so uploads can run concurrently.
type RawFile struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// EditRequest is the transient payload of one update call: a partial set of
// coerced scalar fields plus attachment add/delete sets per kind. It is owned
// by the caller for the duration of one operation and discarded afterwards.
type EditRequest struct {
	Fields            Fields
	PicturesToAdd     []RawFile
	PicturesToDelete  []AttachmentRef
	DocumentsToAdd    []RawFile
	DocumentsToDelete []AttachmentRef
}

// Store is the persistence core for offerings. The database handle and blob
// store are injected so tests can substitute fakes.
type Store struct {
	db    *gorm.DB
	blobs blob.Store
}

func NewStore(db *gorm.DB, blobs blob.Store) *Store {
	return &Store{db: db, blobs: blobs}
}

// Create inserts a new offering owned by adminID together with its initial
// attachment rows. A new offering has no prior attachments, so the one-picture
// floor reduces to requiring at least one uploaded picture. All required
// scalar fields must be present.
func (s *Store) Create(ctx context.Context, adminID string, fields Fields, pictures, documents []RawFile) (*models.Offering, error) {
	if err := CheckPictureMinimum(0, len(pictures)); err != nil {
		return nil, err
	}
	if err := OfferingSchema.CheckRequired(fields); err != nil {
		return nil, err
	}

	pictureRows, documentRows, err := s.uploadAttachments(ctx, pictures, documents)
	if err != nil {
		return nil, err
	}

	offeringID := uuid.NewString()
	now := time.Now()
	row := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		row[k] = v
	}
	// ownership comes from the session, never the form
	row["id"] = offeringID
	row["admin_id"] = adminID
	row["created_at"] = now
	row["updated_at"] = now

	var created models.Offering
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Offering{}).Create(row).Error; err != nil {
			return err
		}
		if err := insertAttachments(tx, offeringID, pictureRows, documentRows); err != nil {
			return err
		}
		return tx.Preload("Pictures").Preload("Documents").First(&created, "id = ?", offeringID).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ApplyEdit applies one edit request as a single all-or-nothing unit: patch
// scalar fields, insert added attachment rows, delete removed attachment
// rows. On any failure the transaction rolls back and the error propagates
// unchanged, leaving the offering's persisted state untouched. Blob uploads
// happen before the transaction opens and are not retracted on rollback, so
// a failed edit can leave orphaned objects in the store; that matches the
// upload-first flow this replaces and keeps the database invariants intact.
func (s *Store) ApplyEdit(ctx context.Context, offeringID, adminID string, req EditRequest) (*models.Offering, error) {
	// The one-picture floor only needs committed state plus the request
	// payload, so it is checked before any transaction opens.
	var existingIDs []string
	err := s.db.WithContext(ctx).Model(&models.OfferingPicture{}).
		Where("offering_id = ?", offeringID).
		Pluck("id", &existingIDs).Error
	if err != nil {
		return nil, err
	}
	surviving := SurvivingCount(existingIDs, req.PicturesToDelete)
	if err := CheckPictureMinimum(surviving, len(req.PicturesToAdd)); err != nil {
		return nil, err
	}

	pictureRows, documentRows, err := s.uploadAttachments(ctx, req.PicturesToAdd, req.DocumentsToAdd)
	if err != nil {
		return nil, err
	}

	patch := make(map[string]any, len(req.Fields)+1)
	for k, v := range req.Fields {
		patch[k] = v
	}
	patch["admin_id"] = adminID

	var updated models.Offering
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Offering{}).Where("id = ?", offeringID).Updates(patch)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := insertAttachments(tx, offeringID, pictureRows, documentRows); err != nil {
			return err
		}
		if err := deleteAttachments(tx, req.PicturesToDelete, req.DocumentsToDelete); err != nil {
			return err
		}
		return tx.Preload("Pictures").Preload("Documents").First(&updated, "id = ?", offeringID).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Get loads one offering joined with its admin, pictures and documents.
func (s *Store) Get(ctx context.Context, offeringID string) (*models.Offering, error) {
	var o models.Offering
	err := s.db.WithContext(ctx).
		Preload("Admin").
		Preload("Pictures").
		Preload("Documents").
		First(&o, "id = ?", offeringID).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns one page of offerings ordered by most-recently-updated, joined
// with admin/pictures/documents, plus the total offering count. Pages are
// zero-based.
func (s *Store) List(ctx context.Context, page int) ([]models.Offering, int64, error) {
	if page < 0 {
		page = 0
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Offering{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var offerings []models.Offering
	err := s.db.WithContext(ctx).
		Preload("Admin").
		Preload("Pictures").
		Preload("Documents").
		Order("updated_at desc").
		Offset(page * PageSize).
		Limit(PageSize).
		Find(&offerings).Error
	if err != nil {
		return nil, 0, err
	}
	return offerings, total, nil
}

// Delete removes an offering and returns the number of rows deleted (0 or 1).
// Attachment rows go with it via the ON DELETE CASCADE foreign keys.
func (s *Store) Delete(ctx context.Context, offeringID string) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&models.Offering{}, "id = ?", offeringID)
	return res.RowsAffected, res.Error
}

// uploadAttachments streams every added file to the blob store concurrently
// and returns attachment rows carrying the resulting URLs and sizes. Pictures
// get a timestamp-based generated key (with an index suffix, since concurrent
// uploads can land in the same millisecond); documents keep their original
// filename.
func (s *Store) uploadAttachments(ctx context.Context, pictures, documents []RawFile) ([]models.OfferingPicture, []models.OfferingDocument, error) {
	g, ctx := errgroup.WithContext(ctx)
	pictureRows := make([]models.OfferingPicture, len(pictures))
	documentRows := make([]models.OfferingDocument, len(documents))
	stamp := time.Now().UnixMilli()

	for i, f := range pictures {
		key := fmt.Sprintf("pictures/property-%d-%d%s", stamp, i, strings.ToLower(path.Ext(f.Filename)))
		g.Go(func() error {
			res, err := putFile(ctx, s.blobs, key, f)
			if err != nil {
				return err
			}
			pictureRows[i] = models.OfferingPicture{Path: res.URL, Size: res.Size}
			return nil
		})
	}
	for i, f := range documents {
		key := "documents/" + path.Base(f.Filename)
		g.Go(func() error {
			res, err := putFile(ctx, s.blobs, key, f)
			if err != nil {
				return err
			}
			documentRows[i] = models.OfferingDocument{Filename: path.Base(f.Filename), Path: res.URL, Size: res.Size}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return pictureRows, documentRows, nil
}

func putFile(ctx context.Context, store blob.Store, key string, f RawFile) (blob.PutResult, error) {
	rc, err := f.Open()
	if err != nil {
		return blob.PutResult{}, err
	}
	defer rc.Close()
	return store.Put(ctx, key, rc)
}

// insertAttachments creates the added attachment rows inside tx. Statements
// run sequentially: a gorm transaction is bound to a single connection and
// must not be used from multiple goroutines.
func insertAttachments(tx *gorm.DB, offeringID string, pictures []models.OfferingPicture, documents []models.OfferingDocument) error {
	for i := range pictures {
		pictures[i].OfferingID = offeringID
	}
	for i := range documents {
		documents[i].OfferingID = offeringID
	}
	if len(pictures) > 0 {
		if err := tx.Create(&pictures).Error; err != nil {
			return err
		}
	}
	if len(documents) > 0 {
		if err := tx.Create(&documents).Error; err != nil {
			return err
		}
	}
	return nil
}

// deleteAttachments removes the listed attachment rows by id inside tx.
// Duplicate or unknown ids are harmless; deletion is by identity set.
func deleteAttachments(tx *gorm.DB, pictures, documents []AttachmentRef) error {
	if ids := refIDs(pictures); len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Delete(&models.OfferingPicture{}).Error; err != nil {
			return err
		}
	}
	if ids := refIDs(documents); len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Delete(&models.OfferingDocument{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func refIDs(refs []AttachmentRef) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids
}
