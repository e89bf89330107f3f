// Package dto holds the wire shapes returned by the API. Persistence structs
// are never serialized directly; every response goes through a one-way
// projection here so navigation cycles (book/vendor/order/confirmation) never
// reach the encoder.
package dto

import (
	"time"

	"github.com/nahomt/bookbridge/internal/models"
)

type User struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Image    string `json:"image"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

func FromUser(u models.User) User {
	return User{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Image:    u.Image,
		Phone:    u.Phone,
		Location: u.Location,
	}
}

type Affiliate struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
	Link     string `json:"link"`
}

type Book struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	ISBN        string     `json:"isbn"`
	Price       float64    `json:"price"`
	Description string     `json:"description"`
	Visible     bool       `json:"visible"`
	Condition   string     `json:"condition"`
	Quantity    uint       `json:"quantity"`
	Version     uint       `json:"version"`
	ImageURL    string     `json:"image_url,omitempty"`
	VendorID    uint       `json:"vendor_id,omitempty"`
	Affiliate   *Affiliate `json:"affiliate,omitempty"`
}

func FromBook(b models.Book, img *models.Image, owned *models.OwnedDetails, aff *models.AffiliateDetails) Book {
	out := Book{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		ISBN:        b.ISBN,
		Price:       b.Price,
		Description: b.Description,
		Visible:     b.Visible,
		Condition:   b.Condition,
		Quantity:    b.Quantity,
		Version:     b.Version,
	}
	if img != nil {
		out.ImageURL = img.URL
	}
	if owned != nil {
		out.VendorID = owned.VendorID
	}
	if aff != nil {
		out.Affiliate = &Affiliate{Source: aff.Source, SourceID: aff.SourceID, Link: aff.Link}
	}
	return out
}

type CartItem struct {
	ID       uint  `json:"id"`
	BookID   uint  `json:"book_id"`
	Quantity uint  `json:"quantity"`
	Book     *Book `json:"book,omitempty"`
}

func FromCartItem(ci models.CartItem, book *Book) CartItem {
	return CartItem{ID: ci.ID, BookID: ci.BookID, Quantity: ci.Quantity, Book: book}
}

type OrderItem struct {
	ID       uint  `json:"id"`
	OrderID  uint  `json:"order_id"`
	BookID   uint  `json:"book_id"`
	Quantity uint  `json:"quantity"`
	Book     *Book `json:"book,omitempty"`
}

func FromOrderItem(oi models.OrderItem, book *Book) OrderItem {
	return OrderItem{ID: oi.ID, OrderID: oi.OrderID, BookID: oi.BookID, Quantity: oi.Quantity, Book: book}
}

type Order struct {
	ID                   uint        `json:"id"`
	CustomerID           uint        `json:"customer_id"`
	Total                float64     `json:"total"`
	Status               string      `json:"status"`
	DeliveryLocation     string      `json:"delivery_location"`
	DeliveryInstructions string      `json:"delivery_instructions,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	Items                []OrderItem `json:"items,omitempty"`
}

func FromOrder(o models.Order, items []OrderItem) Order {
	return Order{
		ID:                   o.ID,
		CustomerID:           o.CustomerID,
		Total:                o.Total,
		Status:               o.Status,
		DeliveryLocation:     o.DeliveryLocation,
		DeliveryInstructions: o.DeliveryInstructions,
		CreatedAt:            o.CreatedAt,
		Items:                items,
	}
}

type Confirmation struct {
	ID          uint      `json:"id"`
	OrderItemID uint      `json:"order_item_id"`
	UserID      uint      `json:"user_id"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

func FromConfirmation(cf models.Confirmation) Confirmation {
	return Confirmation{
		ID:          cf.ID,
		OrderItemID: cf.OrderItemID,
		UserID:      cf.UserID,
		Type:        cf.Type,
		CreatedAt:   cf.CreatedAt,
	}
}

type Payment struct {
	ID        string    `json:"id"`
	FromID    uint      `json:"from_id"`
	ToID      uint      `json:"to_id"`
	OrderID   uint      `json:"order_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func FromPayment(p models.Payment) Payment {
	return Payment{
		ID:        p.ID,
		FromID:    p.FromID,
		ToID:      p.ToID,
		OrderID:   p.OrderID,
		Amount:    p.Amount,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}
}

type Review struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	BookID    uint      `json:"book_id"`
	Text      string    `json:"text,omitempty"`
	Status    string    `json:"status"`
	Version   uint      `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

func FromReview(r models.Review) Review {
	return Review{
		ID:        r.ID,
		UserID:    r.UserID,
		BookID:    r.BookID,
		Text:      r.Text,
		Status:    r.Status,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
	}
}

type Recommendation struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	BookID    uint      `json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
	Book      *Book     `json:"book,omitempty"`
}

func FromRecommendation(r models.Recommendation, book *Book) Recommendation {
	return Recommendation{ID: r.ID, UserID: r.UserID, BookID: r.BookID, CreatedAt: r.CreatedAt, Book: book}
}

type Image struct {
	ID     uint   `json:"id"`
	BookID uint   `json:"book_id"`
	URL    string `json:"url"`
}

func FromImage(img models.Image) Image {
	return Image{ID: img.ID, BookID: img.BookID, URL: img.URL}
}

type ListMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

func NewListMeta(page, offset, limit int, total int64) ListMeta {
	return ListMeta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
}
