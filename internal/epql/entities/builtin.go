/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package entities wires the searchable commerce entities into EPQL
// configurations, either from the built-in defaults or from a YAML definition
// file.
package entities

import (
	"github.com/epcommerce/epql-go-components/internal/epql/ast"
	"github.com/epcommerce/epql-go-components/internal/epql/backend/relational"
	"github.com/epcommerce/epql-go-components/internal/epql/configuration"
	"github.com/epcommerce/epql-go-components/internal/epql/field"
	"github.com/epcommerce/epql-go-components/internal/epql/native"
)

// Defaults returns the built-in entity configurations.
func Defaults() ([]*configuration.EntityConfiguration, error) {
	builders := []*configuration.Builder{
		catalog(),
		category(),
		cmUser(),
		store(),
		taxCode(),
		product(),
		sku(),
		shopper(),
	}
	out := make([]*configuration.EntityConfiguration, 0, len(builders))
	for _, b := range builders {
		cfg, err := b.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// DefaultRegistry returns a registry of the built-in entities.
func DefaultRegistry() (*configuration.Registry, error) {
	configs, err := Defaults()
	if err != nil {
		return nil, err
	}
	return configuration.NewRegistry(configs...)
}

func catalog() *configuration.Builder {
	return configuration.NewEntity("Catalog", native.BackendRelational, native.Root{
		Source: "tcatalog",
		Alias:  "c",
		Select: []string{"c.guid"},
	}).
		ConfigureField("CatalogCode", "c.code", field.NonLocalized, field.TypeString, nil).
		ConfigureField("CatalogName", "c.name", field.NonLocalized, field.TypeString, nil).
		ConfigureField("Master", "c.master", field.NonLocalized, field.TypeBoolean, nil).
		AddSortField("c.code", ast.Asc)
}

func category() *configuration.Builder {
	return configuration.NewEntity("Category", native.BackendRelational, native.Root{
		Source: "tcategory",
		Alias:  "cat",
		Joins:  []native.Join{{Table: "tcatalog", Alias: "c", Left: "c.uidpk", Right: "cat.catalog_uid"}},
		Select: []string{"cat.guid"},
	}).
		ConfigureField("CategoryCode", "cat.code", field.NonLocalized, field.TypeString, nil).
		ConfigureField("CatalogCode", "c.code", field.NonLocalized, field.TypeString, nil).
		ConfigureField("CategoryName", "tcategoryldf.display_name", field.Localized, field.TypeString, relational.LocalizedValue{
			Table:        "tcategoryldf",
			ForeignKey:   "tcategoryldf.category_uid",
			RootKey:      "cat.uidpk",
			LocaleColumn: "tcategoryldf.locale",
		}).
		ConfigureField("Hidden", "cat.hidden", field.NonLocalized, field.TypeBoolean, nil).
		ConfigureField("StartDate", "cat.start_date", field.NonLocalized, field.TypeDate, nil).
		ConfigureField("EndDate", "cat.end_date", field.NonLocalized, field.TypeDate, nil).
		AddSortField("cat.code", ast.Asc)
}

func cmUser() *configuration.Builder {
	return configuration.NewEntity("CmUser", native.BackendRelational, native.Root{
		Source: "tcmuser",
		Alias:  "cm",
		Select: []string{"cm.guid"},
	}).
		ConfigureField("UserId", "cm.user_name", field.NonLocalized, field.TypeString, nil).
		ConfigureField("Email", "cm.email", field.NonLocalized, field.TypeString, nil).
		ConfigureField("FirstName", "cm.first_name", field.NonLocalized, field.TypeString, nil).
		ConfigureField("LastName", "cm.last_name", field.NonLocalized, field.TypeString, nil).
		ConfigureField("Enabled", "cm.enabled", field.NonLocalized, field.TypeBoolean, nil).
		ConfigureField("LastLogin", "cm.last_login_date", field.NonLocalized, field.TypeDate, nil).
		AddSortField("cm.guid", ast.Asc)
}

func store() *configuration.Builder {
	return configuration.NewEntity("Store", native.BackendRelational, native.Root{
		Source: "tstore",
		Alias:  "s",
		Joins:  []native.Join{{Table: "taddress", Alias: "a", Left: "a.uidpk", Right: "s.address_uid"}},
		Select: []string{"s.storecode"},
	}).
		ConfigureField("StoreCode", "s.storecode", field.NonLocalized, field.TypeString, nil).
		ConfigureField("StoreName", "s.name", field.NonLocalized, field.TypeString, nil).
		ConfigureField("StoreCountry", "a.country", field.NonLocalized, field.TypeString, nil).
		ConfigureField("StoreState", "s.store_state", field.NonLocalized, field.TypeNumber, nil).
		ConfigureField("Enabled", "s.enabled", field.NonLocalized, field.TypeBoolean, nil).
		AddSortField("s.storecode", ast.Asc)
}

func taxCode() *configuration.Builder {
	return configuration.NewEntity("TaxCode", native.BackendRelational, native.Root{
		Source: "ttaxcode",
		Alias:  "tc",
		Select: []string{"tc.uidpk"},
	}).
		ConfigureField("TaxCode", "tc.code", field.NonLocalized, field.TypeString, nil).
		AddSortField("tc.code", ast.Asc).
		SetFetchType(native.FetchUID)
}

func product() *configuration.Builder {
	return configuration.NewEntity("Product", native.BackendSearch, native.Root{
		Source: "product",
		Select: []string{"productCode"},
	}).
		ConfigureField("ProductCode", "productCode", field.NonLocalized, field.TypeString, nil).
		ConfigureField("ProductName", "displayName_{locale}", field.Localized, field.TypeString, nil).
		ConfigureField("Brand", "brandCode", field.NonLocalized, field.TypeString, nil).
		ConfigureField("CatalogCode", "catalogCode", field.NonLocalized, field.TypeString, nil).
		ConfigureField("Price", "price_{locale}_{currency}", field.Localized, field.TypeNumber, nil).
		ConfigureField("Displayable", "displayable", field.NonLocalized, field.TypeBoolean, nil).
		ConfigureField("LastModified", "lastModifiedDate", field.NonLocalized, field.TypeDate, nil).
		AddSortField("productCode", ast.Asc)
}

func sku() *configuration.Builder {
	return configuration.NewEntity("ProductSku", native.BackendSearch, native.Root{
		Source: "sku",
		Select: []string{"productCode", "skuCode"},
	}).
		ConfigureField("ProductCode", "productCode", field.NonLocalized, field.TypeString, nil).
		ConfigureField("SkuCode", "skuCode", field.NonLocalized, field.TypeString, nil).
		ConfigureField("SkuOption", "optionValue_{locale}", field.Localized, field.TypeString, nil).
		AddSortField("productCode", ast.Asc).
		AddSortField("skuCode", ast.Asc).
		SetFetchType(native.FetchCompoundGUID)
}

func shopper() *configuration.Builder {
	return configuration.NewEntity("Shopper", native.BackendDocument, native.Root{
		Source: "shoppers",
		Select: []string{"guid"},
	}).
		ConfigureField("Email", "email", field.NonLocalized, field.TypeString, nil).
		ConfigureField("StoreCode", "storeCode", field.NonLocalized, field.TypeString, nil).
		ConfigureField("Nickname", "nickname.{locale}", field.Localized, field.TypeString, nil).
		ConfigureField("LoyaltyPoints", "loyalty.points", field.NonLocalized, field.TypeNumber, nil).
		ConfigureField("Registered", "registeredAt", field.NonLocalized, field.TypeDate, nil).
		AddSortField("email", ast.Asc)
}
