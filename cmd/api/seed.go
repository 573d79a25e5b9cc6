package main

import (
	"context"

	catalog "smartcity-orders/internal/features/catalog/domain"
	catalogports "smartcity-orders/internal/features/catalog/ports"
)

// demoProducts stocks the in-memory catalog for local development.
var demoProducts = []catalog.Product{
	{
		ID:         "P1",
		Name:       "Water Controller Sensor",
		Category:   "sensors",
		Price:      34500,
		Stock:      40,
		IsSensor:   true,
		SensorType: "water",
	},
	{
		ID:         "P2",
		Name:       "Smart Street Light",
		Category:   "lighting",
		Price:      129900,
		Stock:      12,
		IsSensor:   true,
		SensorType: "light",
	},
	{
		ID:         "P3",
		Name:       "Air Quality Monitor",
		Category:   "sensors",
		Price:      58000,
		Stock:      25,
		IsSensor:   true,
		SensorType: "air",
	},
	{
		ID:       "P4",
		Name:     "Solar Mounting Kit",
		Category: "accessories",
		Price:    7500,
		Stock:    100,
	},
}

func seedCatalog(ctx context.Context, svc catalogports.CatalogService) error {
	for _, p := range demoProducts {
		if err := svc.SaveProduct(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
