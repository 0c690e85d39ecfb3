package model

type ProductAdded struct {
	ProductID int64
	Name      string
	Price     string
}

func (e ProductAdded) Type() string { return "ProductAdded" }
