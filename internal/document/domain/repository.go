package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendorbill/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Kind    Kind
	Status  Status
	SortBy  string
	OrderBy string
	pagination.Pagination
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, doc *Document) error
	// Save writes every header column of doc.
	Save(ctx context.Context, doc *Document) error
	FindByID(ctx context.Context, vendorID, id snowflake.ID) (*Document, error)
	// FindForUpdate loads the document and locks its row until the
	// surrounding transaction ends.
	FindForUpdate(ctx context.Context, vendorID, id snowflake.ID) (*Document, error)
	List(ctx context.Context, vendorID snowflake.ID, filter ListFilter) ([]*Document, int64, error)

	ReplaceItems(ctx context.Context, documentID snowflake.ID, items []LineItem) error
	ListItems(ctx context.Context, documentID snowflake.ID) ([]LineItem, error)
	ReplaceTaxLines(ctx context.Context, documentID snowflake.ID, lines []TaxLine) error
	ListTaxLines(ctx context.Context, documentID snowflake.ID) ([]TaxLine, error)
}
