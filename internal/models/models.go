package models

import (
	"time"
)

type User struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"not null"                 json:"name"`
	Email    string `gorm:"uniqueIndex;not null"     json:"email"`
	Image    string `json:"image"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type Account struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"                  json:"id"`
	UserID            uint   `gorm:"index;not null"                            json:"user_id"`
	Provider          string `gorm:"not null;uniqueIndex:idx_provider_account" json:"provider"`
	ProviderAccountID string `gorm:"not null;uniqueIndex:idx_provider_account" json:"provider_account_id"`
}

type Book struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"not null;index"           json:"title"`
	Author      string    `gorm:"not null"                 json:"author"`
	ISBN        string    `gorm:"column:isbn"              json:"isbn"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Visible     bool      `gorm:"not null;default:false"   json:"visible"`
	Condition   string    `json:"condition"`
	Quantity    uint      `json:"quantity"`
	Version     uint      `gorm:"not null;default:1"       json:"version"`
	CreatedAt   time.Time `json:"created_at"`
}

// OwnedDetails binds a book to the local vendor selling it. A book carries
// either OwnedDetails or AffiliateDetails, never both.
type OwnedDetails struct {
	ID       uint `gorm:"primaryKey;autoIncrement" json:"id"`
	BookID   uint `gorm:"uniqueIndex;not null"     json:"book_id"`
	VendorID uint `gorm:"index;not null"           json:"vendor_id"`
}

type AffiliateDetails struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"                json:"id"`
	BookID   uint   `gorm:"not null;uniqueIndex:idx_affiliate_book" json:"book_id"`
	Source   string `gorm:"not null;uniqueIndex:idx_affiliate_book" json:"source"`
	SourceID string `gorm:"not null;uniqueIndex:idx_affiliate_book" json:"source_id"`
	Link     string `json:"link"`
}

type Image struct {
	ID     uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	BookID uint   `gorm:"uniqueIndex;not null"     json:"book_id"`
	URL    string `gorm:"not null"                 json:"url"`
	Key    string `gorm:"not null"                 json:"key"`
}

type CartItem struct {
	ID       uint `gorm:"primaryKey;autoIncrement"                json:"id"`
	UserID   uint `gorm:"not null;uniqueIndex:idx_cart_user_book" json:"user_id"`
	BookID   uint `gorm:"not null;uniqueIndex:idx_cart_user_book" json:"book_id"`
	Quantity uint `gorm:"default:1;check:quantity>0"              json:"quantity"`
}

const (
	OrderStatusPending   = "Pending"
	OrderStatusPaid      = "Paid"
	OrderStatusCompleted = "Completed"
	OrderStatusCanceled  = "Canceled"
)

type Order struct {
	ID                   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID           uint      `gorm:"index;not null"           json:"customer_id"`
	Total                float64   `gorm:"not null"                 json:"total"`
	Status               string    `gorm:"not null"                 json:"status"`
	DeliveryLocation     string    `gorm:"not null"                 json:"delivery_location"`
	DeliveryInstructions string    `json:"delivery_instructions"`
	CreatedAt            time.Time `json:"created_at"`
}

type OrderItem struct {
	ID       uint `gorm:"primaryKey;autoIncrement"  json:"id"`
	OrderID  uint `gorm:"index;not null"            json:"order_id"`
	BookID   uint `gorm:"not null"                  json:"book_id"`
	Quantity uint `gorm:"not null;check:quantity>0" json:"quantity"`
}

const (
	ConfirmationDispatch = "Dispatch"
	ConfirmationReceipt  = "Receipt"
	ConfirmationCanceled = "Canceled"
)

type Confirmation struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"                   json:"id"`
	OrderItemID uint      `gorm:"not null;uniqueIndex:idx_confirmation_once" json:"order_item_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_confirmation_once" json:"user_id"`
	Type        string    `gorm:"not null;uniqueIndex:idx_confirmation_once" json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Payment.ID is the transaction code assigned by the mobile-money gateway,
// never generated locally.
type Payment struct {
	ID        string    `gorm:"primaryKey"     json:"id"`
	FromID    uint      `gorm:"index;not null" json:"from_id"`
	ToID      uint      `gorm:"index;not null" json:"to_id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	Amount    float64   `gorm:"not null"       json:"amount"`
	Status    string    `gorm:"not null"       json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ReviewLike    = "Like"
	ReviewDislike = "Dislike"
	ReviewNeutral = "Neutral"
)

type Review struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	BookID    uint      `gorm:"index;not null"           json:"book_id"`
	Text      string    `json:"text"`
	Status    string    `gorm:"not null"                 json:"status"`
	Version   uint      `gorm:"not null;default:1"       json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

type Recommendation struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"               json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_rec_user_book" json:"user_id"`
	BookID    uint      `gorm:"not null;uniqueIndex:idx_rec_user_book" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	InventoryInitialStock = "InitialStock"
	InventoryAdjustment   = "Adjustment"
	InventoryDeletion     = "Deletion"
	InventorySale         = "Sale"
)

// InventoryLog is an append-only ledger of stock changes; rows are never
// updated in place.
type InventoryLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BookID    uint      `gorm:"index;not null"           json:"book_id"`
	Quantity  int       `gorm:"not null"                 json:"quantity"`
	Type      string    `gorm:"not null"                 json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
