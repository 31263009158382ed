// Package catalog owns the item lifecycle: listing, lookup, seller edits and
// the filtered, paginated search over unsold items.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/trznica/internal/apperr"
	"github.com/erazemk/trznica/internal/images"
	"github.com/erazemk/trznica/internal/model"
	"github.com/erazemk/trznica/internal/policy"
	"github.com/erazemk/trznica/internal/store"
)

// Paging defaults applied when page or limit is missing or unusable.
const (
	DefaultPage  = 1
	DefaultLimit = 5
)

// Caller-facing messages.
const (
	MsgInvalidItemID   = "You must supply a valid item id."
	MsgItemNotFound    = "No item found with that id."
	MsgItemSold        = "That item has already been sold."
	MsgDeleteSold      = "You cannot delete an item that has already been sold."
	MsgNothingToUpdate = "No data to update your item."
	MsgInvalidImage    = "Images must be JPEG or PNG files."
	MsgUnauthenticated = "Not authorized to access this route."
)

// ImageStore keeps uploaded pictures and hands back their public path.
type ImageStore interface {
	Store(ctx context.Context, u images.Upload) (string, error)
	Release(path string) error
}

// Service implements the catalog operations on top of the store.
type Service struct {
	db     *sql.DB
	images ImageStore
	log    *zap.Logger
}

// New returns a catalog service. A nil logger discards output.
func New(db *sql.DB, images ImageStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, images: images, log: log}
}

// CreateItem validates in, stores the uploads and lists the item for user.
func (s *Service) CreateItem(ctx context.Context, in model.ItemInput, user *model.User, uploads []images.Upload) (*model.Item, error) {
	if user == nil {
		return nil, apperr.Unauthenticated(MsgUnauthenticated)
	}
	if err := model.ValidateItemInput(in, len(uploads)); err != nil {
		return nil, err
	}

	paths, err := s.storeImages(ctx, uploads)
	if err != nil {
		return nil, err
	}

	item, err := store.CreateItem(ctx, s.db, user.ID, in, paths)
	if err != nil {
		s.release(paths)
		return nil, apperr.Internal("creating item", err)
	}

	s.log.Info("item created",
		zap.String("item_id", item.ID),
		zap.String("seller_id", user.ID),
		zap.Int("images", len(paths)),
	)
	return item, nil
}

// GetItem returns the item with its seller. Ids that are not UUIDs cannot
// name an item and are reported as not found.
func (s *Service) GetItem(ctx context.Context, id string) (*model.Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound(MsgInvalidItemID)
	}

	item, err := store.GetItem(ctx, s.db, id)
	if err != nil {
		return nil, apperr.Internal("getting item", err)
	}
	if item == nil {
		return nil, apperr.NotFound(MsgItemNotFound)
	}
	return item, nil
}

// UpdateItem applies u to the item. Only the seller may edit, and only
// while the item is unsold. Uploads, when given, replace the image set.
func (s *Service) UpdateItem(ctx context.Context, id string, u model.ItemUpdate, user *model.User, uploads []images.Upload) (*model.Item, error) {
	if user == nil {
		return nil, apperr.Unauthenticated(MsgUnauthenticated)
	}

	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Sold {
		return nil, apperr.State(MsgItemSold)
	}
	if err := policy.AuthorizeOwnership(item, user); err != nil {
		return nil, err
	}
	if u.Empty() && len(uploads) == 0 {
		return nil, apperr.Validation(MsgNothingToUpdate)
	}
	if err := model.ValidateItemUpdate(u, len(uploads)); err != nil {
		return nil, err
	}

	u.Apply(item)

	var replaced []string
	if len(uploads) > 0 {
		paths, err := s.storeImages(ctx, uploads)
		if err != nil {
			return nil, err
		}
		replaced, item.Images = item.Images, paths
	}

	if err := store.UpdateItem(ctx, s.db, item); err != nil {
		if len(uploads) > 0 {
			s.release(item.Images)
		}
		if errors.Is(err, store.ErrItemSold) {
			return nil, apperr.State(MsgItemSold)
		}
		return nil, apperr.Internal("updating item", err)
	}
	s.release(replaced)

	s.log.Info("item updated", zap.String("item_id", item.ID), zap.String("seller_id", user.ID))
	return item, nil
}

// DeleteItem removes an unsold item and releases its images.
func (s *Service) DeleteItem(ctx context.Context, id string, user *model.User) error {
	if user == nil {
		return apperr.Unauthenticated(MsgUnauthenticated)
	}

	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item.Sold {
		return apperr.State(MsgDeleteSold)
	}
	if err := policy.AuthorizeOwnership(item, user); err != nil {
		return err
	}

	if err := store.DeleteItem(ctx, s.db, item.ID); err != nil {
		if errors.Is(err, store.ErrItemSold) {
			return apperr.State(MsgDeleteSold)
		}
		return apperr.Internal("deleting item", err)
	}
	s.release(item.Images)

	s.log.Info("item deleted", zap.String("item_id", item.ID), zap.String("seller_id", user.ID))
	return nil
}

// GetItems runs a catalog search. Filters are validated; sort and paging
// values that do not parse fall back to their defaults. A page past the end
// is moved back to the last page.
func (s *Service) GetItems(ctx context.Context, q model.ItemQuery) (*model.ItemPage, error) {
	filter, err := model.ValidateItemQuery(q)
	if err != nil {
		return nil, err
	}

	order := model.ItemSort{Field: sortField(q.SortBy), Desc: q.Direction == "desc"}
	page := positiveOr(q.Page, DefaultPage)
	limit := positiveOr(q.Limit, DefaultLimit)

	total, err := store.CountItems(ctx, s.db, filter)
	if err != nil {
		return nil, apperr.Internal("counting items", err)
	}

	result := &model.ItemPage{Items: []model.Item{}, Page: page, Limit: limit, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	last := total / limit
	if total%limit != 0 {
		last++
	}
	if page > last {
		page = last
		result.Page = page
	}

	items, err := store.SearchItems(ctx, s.db, filter, order, (page-1)*limit, limit)
	if err != nil {
		return nil, apperr.Internal("searching items", err)
	}
	if items != nil {
		result.Items = items
	}
	return result, nil
}

// ListSellerItems returns everything sellerID has listed, sold or not.
func (s *Service) ListSellerItems(ctx context.Context, sellerID string) ([]model.Item, error) {
	items, err := store.ListItemsBySeller(ctx, s.db, sellerID)
	if err != nil {
		return nil, apperr.Internal("listing seller items", err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

func (s *Service) storeImages(ctx context.Context, uploads []images.Upload) ([]string, error) {
	paths := make([]string, 0, len(uploads))
	for _, u := range uploads {
		p, err := s.images.Store(ctx, u)
		if err != nil {
			s.release(paths)
			if errors.Is(err, images.ErrInvalidImage) {
				return nil, apperr.Validation(MsgInvalidImage)
			}
			return nil, apperr.Internal("storing image", err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// release drops images that no row points at any more. Failures only warn.
func (s *Service) release(paths []string) {
	for _, p := range paths {
		if err := s.images.Release(p); err != nil {
			s.log.Warn("releasing image", zap.String("path", p), zap.Error(err))
		}
	}
}

func sortField(sortBy string) string {
	switch sortBy {
	case model.SortByName, model.SortByPrice:
		return sortBy
	default:
		return model.SortByUpdated
	}
}

func positiveOr(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
