package utils

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// TextPtr converts a nullable text column to an optional domain string
// type. NULL becomes nil.
func TextPtr[T ~string](t pgtype.Text) *T {
	if !t.Valid {
		return nil
	}
	v := T(t.String)
	return &v
}

// Int4Ptr converts a nullable integer column. NULL becomes nil.
func Int4Ptr(i pgtype.Int4) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int32)
	return &v
}

// Float8Ptr converts a nullable float column. NULL becomes nil.
func Float8Ptr(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// ToNullText is the write-side counterpart of TextPtr.
func ToNullText[T ~string](s *T) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(*s), Valid: true}
}
