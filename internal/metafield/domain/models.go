package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type OwnerType string

const (
	OwnerShop     OwnerType = "shop"
	OwnerCustomer OwnerType = "customer"
	OwnerOrder    OwnerType = "order"
)

const (
	NamespaceCustomer = "fingrid"
	NamespaceApp      = "fingrid_app"

	KeySavedBanks      = "saved_banks"
	KeyTransactionData = "transaction_data"
	KeySettings        = "settings"
	KeyWebhookEvents   = "webhook_events"
)

// Ref addresses a single JSON document. Every document belongs to a shop so
// customer and order ids from different stores never collide.
type Ref struct {
	Shop      string
	OwnerType OwnerType
	OwnerID   string
	Namespace string
	Key       string
}

func ShopSettings(shop string) Ref {
	return Ref{Shop: shop, OwnerType: OwnerShop, OwnerID: shop, Namespace: NamespaceApp, Key: KeySettings}
}

func ShopWebhookEvents(shop string) Ref {
	return Ref{Shop: shop, OwnerType: OwnerShop, OwnerID: shop, Namespace: NamespaceApp, Key: KeyWebhookEvents}
}

func CustomerSavedBanks(shop, customerID string) Ref {
	return Ref{Shop: shop, OwnerType: OwnerCustomer, OwnerID: customerID, Namespace: NamespaceCustomer, Key: KeySavedBanks}
}

func OrderTransaction(shop, orderID string) Ref {
	return Ref{Shop: shop, OwnerType: OwnerOrder, OwnerID: orderID, Namespace: NamespaceCustomer, Key: KeyTransactionData}
}

func (r Ref) Validate() error {
	switch {
	case strings.TrimSpace(r.Shop) == "":
		return ErrInvalidShop
	case strings.TrimSpace(r.OwnerID) == "":
		return ErrInvalidOwner
	case strings.TrimSpace(r.Namespace) == "", strings.TrimSpace(r.Key) == "":
		return ErrInvalidKey
	}
	switch r.OwnerType {
	case OwnerShop, OwnerCustomer, OwnerOrder:
		return nil
	default:
		return ErrInvalidOwner
	}
}

type Metafield struct {
	ID        snowflake.ID   `gorm:"primaryKey;autoIncrement:false"`
	Shop      string         `gorm:"size:255;not null;uniqueIndex:ux_metafields_ref,priority:1"`
	OwnerType OwnerType      `gorm:"size:32;not null;uniqueIndex:ux_metafields_ref,priority:2"`
	OwnerID   string         `gorm:"size:255;not null;uniqueIndex:ux_metafields_ref,priority:3"`
	Namespace string         `gorm:"size:64;not null;uniqueIndex:ux_metafields_ref,priority:4"`
	FieldKey  string         `gorm:"column:field_key;size:64;not null;uniqueIndex:ux_metafields_ref,priority:5"`
	Value     datatypes.JSON `gorm:"not null"`
	Version   int64          `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (Metafield) TableName() string { return "metafields" }

// Document is a decoded read. Version zero means nothing is stored yet.
type Document struct {
	Value     datatypes.JSON
	Version   int64
	UpdatedAt time.Time
}

func (d Document) Exists() bool { return d.Version > 0 }
