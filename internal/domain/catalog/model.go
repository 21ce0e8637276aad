package catalog

// Product is one dialysis-supply catalog row. JSON names follow the wire
// contract the clients already consume.
type Product struct {
	ID          int64    `json:"Id_Producto"`
	Name        string   `json:"Nombre_Producto"`
	Price       float64  `json:"Precio"`
	Stock       *float64 `json:"Existencias"`
	Category    string   `json:"Categoria"`
	Description *string  `json:"Descripcion,omitempty"`
}

// Ingredient is a component of a product, joined through the link table.
type Ingredient struct {
	ID       int64   `json:"Id_Ingrediente"`
	Name     string  `json:"Nombre_Ingrediente"`
	Quantity *string `json:"Cantidad,omitempty"`
}

// ProductInput is the raw mutation payload; stock arrives as a string so an
// empty value can mean unknown rather than zero.
type ProductInput struct {
	ID          string `json:"id" form:"id"`
	Name        string `json:"nombre" form:"nombre"`
	Price       string `json:"precio" form:"precio"`
	Stock       string `json:"existencias" form:"existencias"`
	Category    string `json:"categoria" form:"categoria"`
	Description string `json:"descripcion" form:"descripcion"`
}
