package services

import (
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"order-tracker/internal/models"
)

// SlipService renders the pickup slip the courier collects with a return
type SlipService interface {
	GenerateReturnSlip(ret *models.Return) ([]byte, error)
}

type slipService struct {
	storeName string
}

// NewSlipService creates a new slip service
func NewSlipService(storeName string) SlipService {
	return &slipService{storeName: storeName}
}

// GenerateReturnSlip builds a PDF pickup slip for a return. Rejected returns
// have nothing to pick up and get no slip.
func (s *slipService) GenerateReturnSlip(ret *models.Return) ([]byte, error) {
	if ret.Status == models.ReturnStatusRejected {
		return nil, &models.ValidationError{Kind: models.ValidationSlipUnavailable, Message: "rejected returns have no pickup slip"}
	}

	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(10).
		WithTopMargin(15).
		WithRightMargin(10).
		Build()

	m := maroto.New(cfg)

	s.addHeader(m, ret)
	s.addDetails(m, ret)
	s.addItems(m, ret)
	s.addFooter(m, ret)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate return slip: %w", err)
	}
	return doc.GetBytes(), nil
}

func (s *slipService) addHeader(m core.Maroto, ret *models.Return) {
	m.AddRow(25,
		col.New(6).Add(
			text.New(s.storeName, props.Text{
				Size:  16,
				Style: fontstyle.Bold,
				Align: align.Left,
			}),
		),
		col.New(6).Add(
			text.New("RETURN PICKUP SLIP", props.Text{
				Size:  14,
				Style: fontstyle.Bold,
				Align: align.Right,
			}),
			text.New(fmt.Sprintf("# %s", ret.ReturnNumber), props.Text{
				Size:  10,
				Top:   8,
				Align: align.Right,
			}),
		),
	)
	m.AddRow(5, line.NewCol(12))
}

func (s *slipService) addDetails(m core.Maroto, ret *models.Return) {
	pickup := "To be scheduled"
	if ret.PickupScheduledAt != nil {
		pickup = ret.PickupScheduledAt.Format("Jan 02, 2006 15:04")
	}

	m.AddRow(22,
		col.New(6).Add(
			text.New(fmt.Sprintf("Order #: %s", ret.OrderNumber), props.Text{Size: 10, Align: align.Left}),
			text.New(fmt.Sprintf("Requested: %s", ret.CreatedAt.Format("Jan 02, 2006")), props.Text{Size: 10, Top: 5, Align: align.Left}),
			text.New(fmt.Sprintf("Type: %s", returnTypeLabel(ret.Type)), props.Text{Size: 10, Top: 10, Align: align.Left}),
		),
		col.New(6).Add(
			text.New(fmt.Sprintf("Status: %s", ret.Status.DisplayName()), props.Text{Size: 10, Align: align.Right}),
			text.New(fmt.Sprintf("Pickup: %s", pickup), props.Text{Size: 10, Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(30,
		col.New(12).Add(
			text.New("PICKUP ADDRESS:", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Left}),
			text.New(ret.PickupAddress.String(), props.Text{Size: 9, Top: 5, Align: align.Left}),
		),
	)
	m.AddRow(5, line.NewCol(12))
}

func (s *slipService) addItems(m core.Maroto, ret *models.Return) {
	header := props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Left}
	m.AddRow(8,
		col.New(5).Add(text.New("Item", header)),
		col.New(2).Add(text.New("Variant", header)),
		col.New(1).Add(text.New("Qty", header)),
		col.New(4).Add(text.New("Reason", header)),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range ret.Items {
		variant := strings.Trim(item.Size+" / "+item.Color, " /")
		m.AddRow(8,
			col.New(5).Add(text.New(item.ProductName, props.Text{Size: 9, Align: align.Left})),
			col.New(2).Add(text.New(variant, props.Text{Size: 9, Align: align.Left})),
			col.New(1).Add(text.New(fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Center})),
			col.New(4).Add(text.New(item.Reason, props.Text{Size: 9, Align: align.Left})),
		)
	}
	m.AddRow(3, line.NewCol(12))
}

func (s *slipService) addFooter(m core.Maroto, ret *models.Return) {
	if ret.Type == models.ReturnTypeRefund {
		m.AddRow(8,
			col.New(8),
			col.New(4).Add(text.New(fmt.Sprintf("Refund: %s", formatINR(ret.RefundAmount)), props.Text{
				Size:  11,
				Style: fontstyle.Bold,
				Align: align.Right,
			})),
		)
	}
	m.AddRow(15,
		col.New(12).Add(text.New("Pack the items in their original packaging and hand this slip to the courier.", props.Text{
			Size:  8,
			Top:   5,
			Align: align.Center,
		})),
	)
}

func returnTypeLabel(t models.ReturnType) string {
	if t == models.ReturnTypeReplacement {
		return "Replacement"
	}
	return "Refund"
}

func formatINR(amount float64) string {
	return fmt.Sprintf("Rs. %.2f", amount)
}
