// Package dataset loads the six supply-chain CSV datasets and serves
// historical series and aggregates to the forecast and risk layers.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/yosoku-ai/yosoku/internal/model"
)

// File names expected under the data directory.
const (
	supplierFile   = "supplier_lead_time.csv"
	productionFile = "manufacturing_production.csv"
	inventoryFile  = "inventory_levels.csv"
	demandFile     = "customer_demand.csv"
	transportFile  = "transportation_data.csv"
	externalFile   = "external_factors.csv"
)

// ExternalFactors lists the forecastable external-factor columns in the
// order they are analyzed. Only columns present in the CSV are used.
var ExternalFactors = []string{
	"weather_severity_index",
	"tariff_rate",
	"port_congestion_index",
	"fuel_price_usd",
	"geopolitical_risk_index",
}

type supplierRow struct {
	Date           time.Time
	SupplierID     string
	SupplierName   string
	ComponentID    string
	LeadTimeDays   float64
	OnTimeDelivery float64
	Region         string
}

type productionRow struct {
	Date                time.Time
	PlantID             string
	PlantName           string
	SKU                 string
	CapacityUtilization float64
	DowntimeHours       float64
	DefectRate          float64
	HasDefectRate       bool
	Region              string
}

type inventoryRow struct {
	Date          time.Time
	WarehouseID   string
	WarehouseName string
	SKU           string
	StockOnHand   float64
	SafetyStock   float64
	Region        string
}

type demandRow struct {
	Date          time.Time
	Region        string
	SKU           string
	OrderQuantity float64
}

type transportRow struct {
	Date            time.Time
	RouteID         string
	Origin          string
	Destination     string
	Carrier         string
	TransitTimeDays float64
	OnTimeDelivery  float64
}

type externalRow struct {
	Date    time.Time
	Region  string
	Factors map[string]float64
}

// Combo identifies one forecastable entity/dimension pair within a
// dataset. Secondary is empty for single-key datasets.
type Combo struct {
	EntityID   string
	EntityName string
	Secondary  string // component, SKU, or factor type depending on module
}

// Store holds the parsed datasets. Immutable after Load; safe for
// concurrent reads.
type Store struct {
	suppliers  []supplierRow
	production []productionRow
	inventory  []inventoryRow
	demand     []demandRow
	transport  []transportRow
	external   []externalRow

	externalPresent map[string]bool // factor column -> present in CSV
	loadErrs        map[model.Module]string
}

// Load reads every dataset under dir. A missing or malformed file
// disables its module (recorded, surfaced via Availability) rather than
// failing the whole load; the analysis degrades the same way a failed
// forecast module does.
func Load(dir string, log *slog.Logger) (*Store, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("dataset: data directory %s: %w", dir, err)
	}

	s := &Store{
		externalPresent: make(map[string]bool),
		loadErrs:        make(map[model.Module]string),
	}

	load := func(module model.Module, file string, fn func(records [][]string, header map[string]int) error) {
		records, header, err := readCSV(filepath.Join(dir, file))
		if err == nil {
			err = fn(records, header)
		}
		if err != nil {
			s.loadErrs[module] = err.Error()
			log.Warn("dataset unavailable", "module", module, "file", file, "error", err)
			return
		}
		log.Info("dataset loaded", "module", module, "file", file, "rows", len(records))
	}

	load(model.ModuleSuppliers, supplierFile, s.loadSuppliers)
	load(model.ModuleManufacturing, productionFile, s.loadProduction)
	load(model.ModuleInventory, inventoryFile, s.loadInventory)
	load(model.ModuleDemand, demandFile, s.loadDemand)
	load(model.ModuleTransportation, transportFile, s.loadTransport)
	load(model.ModuleExternal, externalFile, s.loadExternal)

	return s, nil
}

func readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = false

	headerRow, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[name] = i
	}

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(records)+2, err)
		}
		records = append(records, rec)
	}
	return records, header, nil
}

func requireColumns(header map[string]int, names ...string) error {
	for _, name := range names {
		if _, ok := header[name]; !ok {
			return fmt.Errorf("missing required column %q", name)
		}
	}
	return nil
}

func field(rec []string, header map[string]int, name string) string {
	if i, ok := header[name]; ok && i < len(rec) {
		return rec[i]
	}
	return ""
}

func floatField(rec []string, header map[string]int, name string) (float64, error) {
	raw := field(rec, header, name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}

func dateField(rec []string, header map[string]int) (time.Time, error) {
	raw := field(rec, header, "date")
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("column \"date\": %w", err)
	}
	return d, nil
}

func (s *Store) loadSuppliers(records [][]string, header map[string]int) error {
	if err := requireColumns(header, "date", "supplier_id", "supplier_name", "component_id", "lead_time_days", "on_time_delivery"); err != nil {
		return err
	}
	for i, rec := range records {
		date, err := dateField(rec, header)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		leadTime, err := floatField(rec, header, "lead_time_days")
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		onTime, err := floatField(rec, header, "on_time_delivery")
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		s.suppliers = append(s.suppliers, supplierRow{
			Date:           date,
			SupplierID:     field(rec, header, "supplier_id"),
			SupplierName:   field(rec, header, "supplier_name"),
			ComponentID:    field(rec, header, "component_id"),
			LeadTimeDays:   leadTime,
			OnTimeDelivery: onTime,
			Region:         field(rec, header, "supplier_region"),
		})
	}
	return nil
}

func (s *Store) loadProduction(records [][]string, header map[string]int) error {
	if err := requireColumns(header, "date", "plant_id", "plant_name", "sku", "capacity_utilization", "downtime_hours"); err != nil {
		return err
	}
	_, hasDefect := header["defect_rate"]
	for i, rec := range records {
		date, err := dateField(rec, header)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		util, err := floatField(rec, header, "capacity_utilization")
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		downtime, err := floatField(rec, header, "downtime_hours")
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		row := productionRow{
			Date:                date,
			PlantID:             field(rec, header, "plant_id"),
			PlantName:           field(rec, header, "plant_name"),
			SKU:                 field(rec, header, "sku"),
			CapacityUtilization: util,
			DowntimeHours:       downtime,
			HasDefectRate:       hasDefect,
			Region:              field(rec, header, "plant_region"),
		}
		if hasDefect {
			if row.DefectRate, err = floatField(rec, header, "defect_rate"); err != nil {
				return fmt.Errorf("row %d: %w", i+2, err)
			}
		}
		s.production = append(s.production, row)
	}
	return nil
}

func (s *Store) loadInventory(records [][]string, header map[string]int) error {
	if err := requireColumns(header, "date", "warehouse_id", "warehouse_name", "sku", "stock_on_hand", "safety_stock"); err != nil {
		return err
	}
	for i, rec := range records {
		date, err := dateField(rec, header)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		stock, err := floatField(rec, header, "stock_on_hand")
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		safety, err := floatField(rec, header, "safety_stock")
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		s.inventory = append(s.inventory, inventoryRow{
			Date:          date,
			WarehouseID:   field(rec, header, "warehouse_id"),
			WarehouseName: field(rec, header, "warehouse_name"),
			SKU:           field(rec, header, "sku"),
			StockOnHand:   stock,
			SafetyStock:   safety,
			Region:        field(rec, header, "warehouse_region"),
		})
	}
	return nil
}

func (s *Store) loadDemand(records [][]string, header map[string]int) error {
	if err := requireColumns(header, "date", "region", "sku", "order_quantity"); err != nil {
		return err
	}
	for i, rec := range records {
		date, err := dateField(rec, header)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		qty, err := floatField(rec, header, "order_quantity")
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		s.demand = append(s.demand, demandRow{
			Date:          date,
			Region:        field(rec, header, "region"),
			SKU:           field(rec, header, "sku"),
			OrderQuantity: qty,
		})
	}
	return nil
}

func (s *Store) loadTransport(records [][]string, header map[string]int) error {
	if err := requireColumns(header, "date", "route_id", "origin", "destination", "transit_time_days", "on_time_delivery"); err != nil {
		return err
	}
	for i, rec := range records {
		date, err := dateField(rec, header)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		transit, err := floatField(rec, header, "transit_time_days")
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		onTime, err := floatField(rec, header, "on_time_delivery")
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		s.transport = append(s.transport, transportRow{
			Date:            date,
			RouteID:         field(rec, header, "route_id"),
			Origin:          field(rec, header, "origin"),
			Destination:     field(rec, header, "destination"),
			Carrier:         field(rec, header, "carrier_name"),
			TransitTimeDays: transit,
			OnTimeDelivery:  onTime,
		})
	}
	return nil
}

func (s *Store) loadExternal(records [][]string, header map[string]int) error {
	if err := requireColumns(header, "date", "region", "weather_severity_index"); err != nil {
		return err
	}
	for _, factor := range ExternalFactors {
		if _, ok := header[factor]; ok {
			s.externalPresent[factor] = true
		}
	}
	for i, rec := range records {
		date, err := dateField(rec, header)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		factors := make(map[string]float64, len(s.externalPresent))
		for factor := range s.externalPresent {
			v, err := floatField(rec, header, factor)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+2, err)
			}
			factors[factor] = v
		}
		s.external = append(s.external, externalRow{
			Date:    date,
			Region:  field(rec, header, "region"),
			Factors: factors,
		})
	}
	return nil
}

// SupplierCombos returns supplier/component pairs in first-appearance
// order. The ordering is deterministic so forecast iteration and risk
// tie-breaking are reproducible.
func (s *Store) SupplierCombos() []Combo {
	return combos(s.suppliers, func(r supplierRow) Combo {
		return Combo{EntityID: r.SupplierID, EntityName: r.SupplierName, Secondary: r.ComponentID}
	})
}

// SupplierLeadTimeSeries returns the lead-time history for one
// supplier/component pair, ordered by date.
func (s *Store) SupplierLeadTimeSeries(supplierID, componentID string) []model.Observation {
	var obs []model.Observation
	for _, r := range s.suppliers {
		if r.SupplierID == supplierID && r.ComponentID == componentID {
			obs = append(obs, model.Observation{Date: r.Date, Value: r.LeadTimeDays})
		}
	}
	return sortByDate(obs)
}

// ProductionCombos returns plant/SKU pairs in first-appearance order.
func (s *Store) ProductionCombos() []Combo {
	return combos(s.production, func(r productionRow) Combo {
		return Combo{EntityID: r.PlantID, EntityName: r.PlantName, Secondary: r.SKU}
	})
}

// UtilizationSeries returns the capacity-utilization history for one
// plant/SKU pair.
func (s *Store) UtilizationSeries(plantID, sku string) []model.Observation {
	var obs []model.Observation
	for _, r := range s.production {
		if r.PlantID == plantID && r.SKU == sku {
			obs = append(obs, model.Observation{Date: r.Date, Value: r.CapacityUtilization})
		}
	}
	return sortByDate(obs)
}

// DowntimeSeries returns the downtime-hours history for one plant/SKU pair.
func (s *Store) DowntimeSeries(plantID, sku string) []model.Observation {
	var obs []model.Observation
	for _, r := range s.production {
		if r.PlantID == plantID && r.SKU == sku {
			obs = append(obs, model.Observation{Date: r.Date, Value: r.DowntimeHours})
		}
	}
	return sortByDate(obs)
}

// InventoryCombos returns warehouse/SKU pairs in first-appearance order.
func (s *Store) InventoryCombos() []Combo {
	return combos(s.inventory, func(r inventoryRow) Combo {
		return Combo{EntityID: r.WarehouseID, EntityName: r.WarehouseName, Secondary: r.SKU}
	})
}

// StockSeries returns the stock-on-hand history for one warehouse/SKU pair.
func (s *Store) StockSeries(warehouseID, sku string) []model.Observation {
	var obs []model.Observation
	for _, r := range s.inventory {
		if r.WarehouseID == warehouseID && r.SKU == sku {
			obs = append(obs, model.Observation{Date: r.Date, Value: r.StockOnHand})
		}
	}
	return sortByDate(obs)
}

// SafetyStock returns the most recent safety-stock level for a
// warehouse/SKU pair.
func (s *Store) SafetyStock(warehouseID, sku string) float64 {
	var (
		latest time.Time
		value  float64
	)
	for _, r := range s.inventory {
		if r.WarehouseID == warehouseID && r.SKU == sku && !r.Date.Before(latest) {
			latest, value = r.Date, r.SafetyStock
		}
	}
	return value
}

// DemandCombos returns region/SKU pairs in first-appearance order.
func (s *Store) DemandCombos() []Combo {
	return combos(s.demand, func(r demandRow) Combo {
		return Combo{EntityID: r.Region, EntityName: r.Region, Secondary: r.SKU}
	})
}

// DemandSeries returns the order-quantity history for one region/SKU pair.
func (s *Store) DemandSeries(region, sku string) []model.Observation {
	var obs []model.Observation
	for _, r := range s.demand {
		if r.Region == region && r.SKU == sku {
			obs = append(obs, model.Observation{Date: r.Date, Value: r.OrderQuantity})
		}
	}
	return sortByDate(obs)
}

// RouteCombos returns routes in first-appearance order.
func (s *Store) RouteCombos() []Combo {
	return combos(s.transport, func(r transportRow) Combo {
		return Combo{EntityID: r.RouteID, EntityName: r.Carrier}
	})
}

// TransitSeries returns the transit-time history for one route.
func (s *Store) TransitSeries(routeID string) []model.Observation {
	var obs []model.Observation
	for _, r := range s.transport {
		if r.RouteID == routeID {
			obs = append(obs, model.Observation{Date: r.Date, Value: r.TransitTimeDays})
		}
	}
	return sortByDate(obs)
}

// ExternalCombos returns region/factor pairs in first-appearance region
// order, factors in canonical order, limited to columns present in the
// CSV.
func (s *Store) ExternalCombos() []Combo {
	var regions []string
	seen := make(map[string]bool)
	for _, r := range s.external {
		if !seen[r.Region] {
			seen[r.Region] = true
			regions = append(regions, r.Region)
		}
	}
	var out []Combo
	for _, region := range regions {
		for _, factor := range ExternalFactors {
			if s.externalPresent[factor] {
				out = append(out, Combo{EntityID: region, EntityName: region, Secondary: factor})
			}
		}
	}
	return out
}

// ExternalSeries returns the history of one factor in one region.
func (s *Store) ExternalSeries(region, factor string) []model.Observation {
	if !s.externalPresent[factor] {
		return nil
	}
	var obs []model.Observation
	for _, r := range s.external {
		if r.Region == region {
			obs = append(obs, model.Observation{Date: r.Date, Value: r.Factors[factor]})
		}
	}
	return sortByDate(obs)
}

// Entities returns the identifier catalog across all loaded datasets.
func (s *Store) Entities() model.EntityCatalog {
	var cat model.EntityCatalog
	cat.Suppliers = distinct(s.suppliers, func(r supplierRow) string { return r.SupplierID })
	cat.Plants = distinct(s.production, func(r productionRow) string { return r.PlantID })
	cat.Warehouses = distinct(s.inventory, func(r inventoryRow) string { return r.WarehouseID })
	cat.Routes = distinct(s.transport, func(r transportRow) string { return r.RouteID })

	skus := make(map[string]bool)
	for _, r := range s.production {
		skus[r.SKU] = true
	}
	for _, r := range s.inventory {
		skus[r.SKU] = true
	}
	for _, r := range s.demand {
		skus[r.SKU] = true
	}
	cat.SKUs = sortedKeys(skus)

	regions := make(map[string]bool)
	for _, r := range s.demand {
		regions[r.Region] = true
	}
	for _, r := range s.external {
		regions[r.Region] = true
	}
	cat.Regions = sortedKeys(regions)
	return cat
}

// Availability reports row counts and coarse forecastability per module.
// A module with a load error reports zero rows.
func (s *Store) Availability(minPoints int) []model.DatasetStatus {
	rows := map[model.Module]int{
		model.ModuleSuppliers:      len(s.suppliers),
		model.ModuleManufacturing:  len(s.production),
		model.ModuleInventory:      len(s.inventory),
		model.ModuleDemand:         len(s.demand),
		model.ModuleTransportation: len(s.transport),
		model.ModuleExternal:       len(s.external),
	}
	var out []model.DatasetStatus
	for _, m := range model.AllModules() {
		out = append(out, model.DatasetStatus{
			Module:     m,
			Rows:       rows[m],
			Sufficient: rows[m] >= minPoints,
		})
	}
	return out
}

// LoadError returns the load failure reason for a module, if any.
func (s *Store) LoadError(m model.Module) (string, bool) {
	reason, ok := s.loadErrs[m]
	return reason, ok
}

func combos[T any](rows []T, key func(T) Combo) []Combo {
	var out []Combo
	seen := make(map[string]bool)
	for _, r := range rows {
		c := key(r)
		k := c.EntityID + "\x00" + c.Secondary
		if !seen[k] {
			seen[k] = true
			out = append(out, c)
		}
	}
	return out
}

func distinct[T any](rows []T, key func(T) string) []string {
	set := make(map[string]bool)
	for _, r := range rows {
		set[key(r)] = true
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortByDate(obs []model.Observation) []model.Observation {
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	return obs
}
