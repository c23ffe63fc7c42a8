package dto

import (
	"github.com/gamestore/storefront/internal/application/admin"
	"github.com/shopspring/decimal"
)

// ProductForm is the inventory form of the admin views
type ProductForm struct {
	Nombre      string `form:"nombre" binding:"required,max=200"`
	Descripcion string `form:"descripcion" binding:"max=2000"`
	Precio      string `form:"precio" binding:"required"`
	Stock       int    `form:"stock" binding:"min=0"`
	Imagen      string `form:"imagen"`
	CategoriaID int64  `form:"categoria_id"`
	Activo      bool   `form:"activo"`
}

// ToInput converts the form to the backend payload
func (f ProductForm) ToInput(id int64) (admin.ProductInput, error) {
	precio, err := decimal.NewFromString(f.Precio)
	if err != nil {
		return admin.ProductInput{}, err
	}
	return admin.ProductInput{
		ID:          id,
		Nombre:      f.Nombre,
		Descripcion: f.Descripcion,
		Precio:      precio,
		Stock:       f.Stock,
		Imagen:      f.Imagen,
		CategoriaID: f.CategoriaID,
		Activo:      f.Activo,
	}, nil
}

// UserForm is the account form of the admin views
type UserForm struct {
	Username string `form:"username" binding:"required,min=3,max=50"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password"`
	RolID    int64  `form:"rol_id" binding:"required,min=1"`
	Activo   bool   `form:"activo"`
}

// ToInput converts the form to the backend payload
func (f UserForm) ToInput(id int64) admin.UserInput {
	return admin.UserInput{
		ID:       id,
		Username: f.Username,
		Email:    f.Email,
		Password: f.Password,
		RolID:    f.RolID,
		Activo:   f.Activo,
	}
}

// ActiveRequest enables or disables a product
type ActiveRequest struct {
	Activo bool `form:"activo" json:"activo"`
}

// OrderStateRequest moves an order to another state
type OrderStateRequest struct {
	Estado string `form:"estado" json:"estado" binding:"required"`
}
