// Package models contains GORM-specific persistence models that map to
// database tables. These models are kept separate from domain types so the
// domain layer stays free of ORM concerns; mappers convert between the two.
package models
