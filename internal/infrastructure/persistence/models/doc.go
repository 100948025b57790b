// Package models contains the GORM persistence models. Each model maps one
// domain entity to its table and carries the ToDomain/FromDomain conversions;
// domain entities never carry GORM tags themselves.
package models
