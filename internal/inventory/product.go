package inventory

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/pricing"
)

// Categories accepted for products.
var Categories = []string{"gaseosas", "alimentos", "bazar", "carniceria", "limpieza"}

// Product is an inventory item.
type Product struct {
	ID         int64         `json:"id"`
	Name       string        `json:"nombre"`
	Category   string        `json:"categoria"`
	Price      pricing.Money `json:"precio"`
	Stock      int           `json:"stock"`
	IntakeDate string        `json:"fecha_ingreso"`
	ExpiryDate string        `json:"fecha_vencimiento"`
	Lot        *string       `json:"lote"`
	CreatedAt  time.Time     `json:"creado_en"`
}

// ProductInput is the payload for creating or fully replacing a product.
type ProductInput struct {
	Name       string        `json:"nombre" validate:"notblank,max=200"`
	Category   string        `json:"categoria" validate:"oneof=gaseosas alimentos bazar carniceria limpieza"`
	Price      pricing.Money `json:"precio" validate:"gt=0"`
	Stock      int           `json:"stock" validate:"gte=0,lte=2147483647"`
	IntakeDate string        `json:"fechaIngreso" validate:"isodate"`
	ExpiryDate string        `json:"fechaVencimiento" validate:"required,isodate"`
	Lot        string        `json:"lote" validate:"max=100"`
}

func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.IntakeDate = strings.TrimSpace(in.IntakeDate)
	in.ExpiryDate = strings.TrimSpace(in.ExpiryDate)
	in.Lot = strings.TrimSpace(in.Lot)
}

// ProductPatch carries the fields present in a partial update.
type ProductPatch struct {
	Name       *string        `json:"nombre" validate:"omitnil,notblank,max=200"`
	Category   *string        `json:"categoria" validate:"omitnil,oneof=gaseosas alimentos bazar carniceria limpieza"`
	Price      *pricing.Money `json:"precio" validate:"omitnil,gt=0"`
	Stock      *int           `json:"stock" validate:"omitnil,gte=0"`
	ExpiryDate *string        `json:"fechaVencimiento" validate:"omitnil,notblank,isodate"`
	Lot        *string        `json:"lote" validate:"omitnil,max=100"`
	LotNull    bool           `json:"-"`
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Price == nil && p.Stock == nil &&
		p.ExpiryDate == nil && p.Lot == nil && !p.LotNull
}

func patchString(raw json.RawMessage, field string) (*string, error) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, common.Validation("El campo '"+field+"' debe ser texto.", map[string]any{"campo": field})
	}
	v = strings.TrimSpace(v)
	return &v, nil
}

// ParsePatch decodes a PATCH body. Only nombre, categoria, precio, stock, fechaVencimiento and lote
// may be changed; any other key fails the whole request.
func ParsePatch(body map[string]json.RawMessage) (ProductPatch, error) {
	var patch ProductPatch
	for key, raw := range body {
		switch key {
		case "nombre", "categoria", "fechaVencimiento":
			v, err := patchString(raw, key)
			if err != nil {
				return ProductPatch{}, err
			}
			switch key {
			case "nombre":
				patch.Name = v
			case "categoria":
				lower := strings.ToLower(*v)
				patch.Category = &lower
			default:
				patch.ExpiryDate = v
			}
		case "lote":
			if string(raw) == "null" {
				patch.LotNull = true
				continue
			}
			v, err := patchString(raw, key)
			if err != nil {
				return ProductPatch{}, err
			}
			patch.Lot = v
		case "precio":
			price, err := pricing.ParseMoney(raw)
			if err != nil {
				return ProductPatch{}, common.Validation("El precio debe ser un número.", map[string]any{"campo": key})
			}
			patch.Price = &price
		case "stock":
			raw = json.RawMessage(strings.TrimSpace(string(raw)))
			if len(raw) == 0 || raw[0] == '"' {
				return ProductPatch{}, common.Validation("El stock debe ser un número ≥ 0.", map[string]any{"campo": key})
			}
			qty, err := pricing.ParseQuantity(raw)
			if err != nil || qty < 0 {
				return ProductPatch{}, common.Validation("El stock debe ser un número ≥ 0.", map[string]any{"campo": key})
			}
			patch.Stock = &qty
		default:
			return ProductPatch{}, common.Validation("Campo '"+key+"' no permitido.", map[string]any{"campo": key})
		}
	}
	if patch.Empty() {
		return ProductPatch{}, common.Validation("no hay campos para actualizar", nil)
	}
	if err := common.ValidateStruct(patch); err != nil {
		return ProductPatch{}, err
	}
	return patch, nil
}
