package dataset

// Historical aggregates for the risk analyzers. Each method returns the
// mean over every row for the entity; the bool reports whether any rows
// exist, so callers can distinguish "no history" from a true zero.

// SupplierOnTimeRate returns the mean on-time delivery rate for a supplier.
func (s *Store) SupplierOnTimeRate(supplierID string) (float64, bool) {
	var sum float64
	var n int
	for _, r := range s.suppliers {
		if r.SupplierID == supplierID {
			sum += r.OnTimeDelivery
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// SupplierRegion returns the region of a supplier's first row, or "".
func (s *Store) SupplierRegion(supplierID string) string {
	for _, r := range s.suppliers {
		if r.SupplierID == supplierID {
			return r.Region
		}
	}
	return ""
}

// PlantDowntime returns the mean downtime hours for a plant/SKU pair.
func (s *Store) PlantDowntime(plantID, sku string) (float64, bool) {
	var sum float64
	var n int
	for _, r := range s.production {
		if r.PlantID == plantID && r.SKU == sku {
			sum += r.DowntimeHours
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// PlantUtilization returns the mean capacity utilization for a plant/SKU
// pair.
func (s *Store) PlantUtilization(plantID, sku string) (float64, bool) {
	var sum float64
	var n int
	for _, r := range s.production {
		if r.PlantID == plantID && r.SKU == sku {
			sum += r.CapacityUtilization
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// PlantDefectRate returns the mean defect rate for a plant/SKU pair.
// Absent when the dataset has no defect_rate column.
func (s *Store) PlantDefectRate(plantID, sku string) (float64, bool) {
	var sum float64
	var n int
	for _, r := range s.production {
		if r.PlantID == plantID && r.SKU == sku && r.HasDefectRate {
			sum += r.DefectRate
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// PlantRegion returns the region of a plant's first row, or "".
func (s *Store) PlantRegion(plantID string) string {
	for _, r := range s.production {
		if r.PlantID == plantID {
			return r.Region
		}
	}
	return ""
}

// WarehouseRegion returns the region of a warehouse's first row, or "".
func (s *Store) WarehouseRegion(warehouseID string) string {
	for _, r := range s.inventory {
		if r.WarehouseID == warehouseID {
			return r.Region
		}
	}
	return ""
}

// RouteOnTimeRate returns the mean on-time delivery rate for a route.
func (s *Store) RouteOnTimeRate(routeID string) (float64, bool) {
	var sum float64
	var n int
	for _, r := range s.transport {
		if r.RouteID == routeID {
			sum += r.OnTimeDelivery
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Route returns the origin, destination, and carrier of a route's first
// row.
func (s *Store) Route(routeID string) (origin, destination, carrier string, ok bool) {
	for _, r := range s.transport {
		if r.RouteID == routeID {
			return r.Origin, r.Destination, r.Carrier, true
		}
	}
	return "", "", "", false
}
