package utils

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/swifteats/finance_backend/config"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateInput runs the validator tags on an input struct. Type tags
// (beneficiary/entity kinds) are enumerated with `oneof=` tags so bad kinds
// are rejected at the boundary instead of relying on the schema layer.
func ValidateInput(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		return NewBadRequest(err.Error())
	}
	return nil
}

// check if id exists, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// check if ALL ids exist, return RecordNotFound error
func ValidateResourcesId[M any, ID comparable](ctx context.Context, ids []ID) error {
	unqIds := UniqueSlice(ids)

	count, err := ResourceCountWhere[M](ctx, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return ErrorRecordNotFound
	}

	return nil
}

// count records matching condition
func ResourceCountWhere[T any](ctx context.Context, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	dbCtx.Where(condition, value...)
	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
