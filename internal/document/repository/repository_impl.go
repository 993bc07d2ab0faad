package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	documentdomain "github.com/smallbiznis/vendorbill/internal/document/domain"
	"github.com/smallbiznis/vendorbill/pkg/db/option"
	"github.com/smallbiznis/vendorbill/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var sortable = map[string]bool{
	"created_at":      true,
	"updated_at":      true,
	"issued_at":       true,
	"document_number": true,
	"total":           true,
}

type repo struct {
	db       *gorm.DB
	docs     repository.Repository[documentdomain.Document]
	items    repository.Repository[documentdomain.LineItem]
	taxLines repository.Repository[documentdomain.TaxLine]
}

func NewRepository(db *gorm.DB) documentdomain.Repository {
	return &repo{
		db:       db,
		docs:     repository.ProvideStore[documentdomain.Document](db),
		items:    repository.ProvideStore[documentdomain.LineItem](db),
		taxLines: repository.ProvideStore[documentdomain.TaxLine](db),
	}
}

func (r *repo) WithTx(tx *gorm.DB) documentdomain.Repository {
	return &repo{
		db:       tx,
		docs:     r.docs.WithTrx(tx),
		items:    r.items.WithTrx(tx),
		taxLines: r.taxLines.WithTrx(tx),
	}
}

func (r *repo) Create(ctx context.Context, doc *documentdomain.Document) error {
	return r.docs.Create(ctx, doc)
}

func (r *repo) Save(ctx context.Context, doc *documentdomain.Document) error {
	return r.docs.Update(ctx, doc.ID, map[string]any{
		"status":               doc.Status,
		"document_number":      doc.DocumentNumber,
		"source_document_id":   doc.SourceDocumentID,
		"converted_to_id":      doc.ConvertedToID,
		"service_type":         doc.ServiceType,
		"currency":             doc.Currency,
		"customer_name":        doc.CustomerName,
		"customer_email":       doc.CustomerEmail,
		"is_foreigner":         doc.IsForeigner,
		"guest_nationality":    doc.GuestNationality,
		"booking_type":         doc.BookingType,
		"promo_code":           doc.PromoCode,
		"subtotal":             doc.Subtotal,
		"discount_amount":      doc.DiscountAmount,
		"tax_amount":           doc.TaxAmount,
		"inclusive_tax_amount": doc.InclusiveTaxAmount,
		"total":                doc.Total,
		"notes":                doc.Notes,
		"metadata":             doc.Metadata,
		"status_reason":        doc.StatusReason,
		"issued_at":            doc.IssuedAt,
		"valid_until":          doc.ValidUntil,
		"accepted_at":          doc.AcceptedAt,
		"rejected_at":          doc.RejectedAt,
		"voided_at":            doc.VoidedAt,
		"updated_at":           doc.UpdatedAt,
	})
}

func (r *repo) FindByID(ctx context.Context, vendorID, id snowflake.ID) (*documentdomain.Document, error) {
	return r.docs.FindOne(ctx, &documentdomain.Document{ID: id, VendorID: vendorID})
}

func (r *repo) FindForUpdate(ctx context.Context, vendorID, id snowflake.ID) (*documentdomain.Document, error) {
	if r.db.Dialector.Name() == "sqlite" {
		return r.FindByID(ctx, vendorID, id)
	}
	return r.docs.FindOne(ctx, &documentdomain.Document{ID: id, VendorID: vendorID}, lockForUpdate())
}

func (r *repo) List(ctx context.Context, vendorID snowflake.ID, filter documentdomain.ListFilter) ([]*documentdomain.Document, int64, error) {
	query := &documentdomain.Document{
		VendorID: vendorID,
		Kind:     filter.Kind,
		Status:   filter.Status,
	}

	total, err := r.docs.Count(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	page := filter.Pagination.Normalize()
	docs, err := r.docs.Find(ctx, query,
		option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, sortable)),
		option.WithLimit(page.PageSize),
		option.WithOffset(page.Offset()),
	)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *repo) ReplaceItems(ctx context.Context, documentID snowflake.ID, items []documentdomain.LineItem) error {
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&documentdomain.LineItem{}).Error; err != nil {
		return err
	}
	return r.items.BatchCreate(ctx, lo.ToSlicePtr(items))
}

func (r *repo) ListItems(ctx context.Context, documentID snowflake.ID) ([]documentdomain.LineItem, error) {
	items, err := r.items.Find(ctx, &documentdomain.LineItem{DocumentID: documentID}, orderBy("position"))
	if err != nil {
		return nil, err
	}
	return lo.FromSlicePtr(items), nil
}

func (r *repo) ReplaceTaxLines(ctx context.Context, documentID snowflake.ID, lines []documentdomain.TaxLine) error {
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&documentdomain.TaxLine{}).Error; err != nil {
		return err
	}
	return r.taxLines.BatchCreate(ctx, lo.ToSlicePtr(lines))
}

func (r *repo) ListTaxLines(ctx context.Context, documentID snowflake.ID) ([]documentdomain.TaxLine, error) {
	lines, err := r.taxLines.Find(ctx, &documentdomain.TaxLine{DocumentID: documentID}, orderBy("code"))
	if err != nil {
		return nil, err
	}
	return lo.FromSlicePtr(lines), nil
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

func orderBy(column string) option.QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}})
	})
}

func lockForUpdate() option.QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	})
}
