package httpgin

import (
	"github.com/google/uuid"

	"github.com/kirinyoku/tabgo/internal/domain"
)

type EnsureCheckRequest struct {
	TableIDs []string `json:"tableIds" binding:"required,min=1,dive,required"`
}

type UpdateCheckRequest struct {
	GuestNames       *[]string `json:"guestNames"`
	CurrentCourse    *string   `json:"currentCourse"`
	ReceiptNote      *string   `json:"receiptNote"`
	Status           *string   `json:"status" binding:"omitempty,checkstatus"`
	ExpectedRevision *int64    `json:"expectedRevision" binding:"required,gte=1"`
}

func (r UpdateCheckRequest) toPatch() domain.CheckPatch {
	p := domain.CheckPatch{
		GuestNames:       r.GuestNames,
		CurrentCourse:    r.CurrentCourse,
		ReceiptNote:      r.ReceiptNote,
		ExpectedRevision: *r.ExpectedRevision,
	}
	if r.Status != nil {
		s := domain.CheckStatus(*r.Status)
		p.Status = &s
	}
	return p
}

type AddLineRequest struct {
	Name             string       `json:"name" binding:"required_without=MenuItemID"`
	Seat             string       `json:"seat" binding:"required"`
	TableID          string       `json:"tableId"`
	Price            domain.Cents `json:"price" binding:"required_without=MenuItemID,gte=0,lte=100000000"`
	Qty              *int         `json:"qty" binding:"omitempty,gte=1,lte=10000"`
	MenuItemID       *string      `json:"menuItemId"`
	ModifierKey      *string      `json:"modifierKey"`
	Modifiers        []string     `json:"modifiers"`
	ExpectedRevision *int64       `json:"expectedRevision" binding:"omitempty,gte=1"`
}

func (r AddLineRequest) toNewLine() domain.NewLine {
	return domain.NewLine{
		Name:             r.Name,
		Seat:             r.Seat,
		TableID:          r.TableID,
		Price:            r.Price,
		Qty:              r.Qty,
		MenuItemID:       r.MenuItemID,
		ModifierKey:      r.ModifierKey,
		Modifiers:        r.Modifiers,
		ExpectedRevision: r.ExpectedRevision,
	}
}

type UpdateLineRequest struct {
	LineID           string    `json:"lineId" binding:"required,uuid"`
	Qty              *int      `json:"qty" binding:"omitempty,lte=10000"`
	Comp             *bool     `json:"comp"`
	SplitMode        *string   `json:"splitMode" binding:"omitempty,splitmode"`
	TransferTo       *string   `json:"transferTo"`
	CustomSplitNote  *string   `json:"customSplitNote"`
	Modifiers        *[]string `json:"modifiers"`
	ExpectedRevision *int64    `json:"expectedRevision" binding:"omitempty,gte=1"`
}

func (r UpdateLineRequest) toPatch() domain.LinePatch {
	p := domain.LinePatch{
		LineID:           uuid.MustParse(r.LineID),
		Qty:              r.Qty,
		Comp:             r.Comp,
		TransferTo:       r.TransferTo,
		CustomSplitNote:  r.CustomSplitNote,
		Modifiers:        r.Modifiers,
		ExpectedRevision: r.ExpectedRevision,
	}
	if r.SplitMode != nil {
		m := domain.SplitMode(*r.SplitMode)
		p.SplitMode = &m
	}
	return p
}

type SetTableStatusRequest struct {
	Status string `json:"status" binding:"required,tablestatus"`
}

type UpsertTablesRequest struct {
	Tables []TableInput `json:"tables" binding:"required,min=1,dive"`
}

type TableInput struct {
	ID         string `json:"id" binding:"required"`
	Label      string `json:"label"`
	Zone       string `json:"zone"`
	Seats      int    `json:"seats" binding:"required,gt=0"`
	Combinable bool   `json:"combinable"`
}

type UpsertMenuItemsRequest struct {
	Items []MenuItemInput `json:"items" binding:"required,min=1,dive"`
}

type MenuItemInput struct {
	ID          string       `json:"id" binding:"required"`
	Name        string       `json:"name" binding:"required"`
	Price       domain.Cents `json:"price" binding:"required,gt=0,lte=100000000"`
	ModifierKey *string      `json:"modifierKey"`
	Modifiers   []string     `json:"modifiers"`
	Available   *bool        `json:"available"`
}

type TrustDevicesRequest struct {
	DeviceIDs []string `json:"deviceIds" binding:"required,min=1,dive,required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

type LineResponse struct {
	Line  *domain.CheckLine `json:"line"`
	Check domain.Check      `json:"check"`
}

type CountResponse struct {
	Saved int `json:"saved"`
}
