/*
Package presets provides ready-made tariff tables.

These functions build JSON tariff tables for common parking setups. They
construct JSON directly so any caller can feed them to the factory, the
SQLite importer or the demo scenarios.

USAGE:
  import "github.com/warp/tariff-engine/presets"

  jsonStr := presets.CarTariffJSON("carro")
  table, err := factory.NewTableFactory().ParseTable(jsonStr)
*/
package presets

import (
	"encoding/json"
	"fmt"
)

// Preset describes one tariff table.
type Preset struct {
	ID          string
	Name        string
	Description string
	JSON        func() string
}

// Catalog lists every preset in display order.
func Catalog() []Preset {
	return []Preset{
		{
			ID:          "carro",
			Name:        "Car park (full)",
			Description: "Hourly R$5 with 10 min courtesy, daily 08:00-18:00, overnight 22:00-06:00 and weekly, all billing overage on the hourly rate",
			JSON:        func() string { return CarTariffJSON("carro") },
		},
		{
			ID:          "moto",
			Name:        "Motorcycles",
			Description: "Hourly R$3 and a weekday daily rate for motorcycles",
			JSON:        func() string { return MotorcycleTariffJSON("moto") },
		},
		{
			ID:          "sem-extra",
			Name:        "Daily without overage rate",
			Description: "Daily window with no extra rate: late exits raise a warning instead of a charge",
			JSON:        func() string { return DailyWithoutExtraJSON("carro") },
		},
	}
}

// Find returns the preset with the given ID.
func Find(id string) (Preset, bool) {
	for _, p := range Catalog() {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// CarTariffJSON returns a complete car tariff table. Rate IDs are prefixed
// with vehicleType (e.g. "carro-hora").
func CarTariffJSON(vehicleType string) string {
	hourly := rateID(vehicleType, "hora")
	daily := rateID(vehicleType, "diaria")
	overnight := rateID(vehicleType, "pernoite")
	weekly := rateID(vehicleType, "semanal")

	tj := map[string]interface{}{
		"rates": []map[string]interface{}{
			HourlyRate(hourly, vehicleType, 5, 10),
			flatRate(daily, vehicleType, "Diária", 30, "dia"),
			flatRate(overnight, vehicleType, "Pernoite", 40, "noite"),
			flatRate(weekly, vehicleType, "Semanal", 150, "semana"),
		},
		"time_windows": []map[string]interface{}{
			DailyWindow("w-"+daily, daily, "08:00", "18:00", hourly),
			OvernightWindow("w-"+overnight, overnight, "22:00", "06:00", hourly),
			{
				"id":                     "w-" + weekly,
				"rate_id":                weekly,
				"window_type":            "weekly",
				"duration_limit_minutes": 7 * 24 * 60,
				"extra_rate_id":          hourly,
			},
		},
		"thresholds": []map[string]interface{}{
			threshold("t-"+hourly+"-diaria", hourly, daily, 30, false),
			threshold("t-"+daily+"-semanal", daily, weekly, 150, false),
		},
	}
	return marshal(tj)
}

// MotorcycleTariffJSON returns a motorcycle table: hourly plus a Monday to
// Friday daily rate.
func MotorcycleTariffJSON(vehicleType string) string {
	hourly := rateID(vehicleType, "hora")
	daily := rateID(vehicleType, "diaria")

	window := DailyWindow("w-"+daily, daily, "07:00", "19:00", hourly)
	window["start_day"] = 1
	window["end_day"] = 5

	tj := map[string]interface{}{
		"rates": []map[string]interface{}{
			HourlyRate(hourly, vehicleType, 3, 10),
			flatRate(daily, vehicleType, "Diária", 15, "dia"),
		},
		"time_windows": []map[string]interface{}{window},
		"thresholds": []map[string]interface{}{
			threshold("t-"+hourly+"-diaria", hourly, daily, 15, true),
		},
	}
	return marshal(tj)
}

// DailyWithoutExtraJSON returns a daily rate whose window has no extra rate.
func DailyWithoutExtraJSON(vehicleType string) string {
	daily := rateID(vehicleType, "diaria-simples")

	tj := map[string]interface{}{
		"rates": []map[string]interface{}{
			flatRate(daily, vehicleType, "Diária", 25, "dia"),
		},
		"time_windows": []map[string]interface{}{
			DailyWindow("w-"+daily, daily, "08:00", "18:00", ""),
		},
	}
	return marshal(tj)
}

// =============================================================================
// BUILDING BLOCKS
// =============================================================================

// HourlyRate returns the JSON object of an hourly/fraction rate.
func HourlyRate(id, vehicleType string, value float64, courtesyMinutes int) map[string]interface{} {
	r := flatRate(id, vehicleType, "Hora/Fração", value, "hora")
	r["courtesy_minutes"] = courtesyMinutes
	return r
}

// DailyWindow returns the JSON object of a daily window. An empty
// extraRateID leaves overage unbilled.
func DailyWindow(id, rateID, start, end, extraRateID string) map[string]interface{} {
	return window(id, rateID, "daily", start, end, extraRateID)
}

// OvernightWindow returns the JSON object of an overnight window.
func OvernightWindow(id, rateID, start, end, extraRateID string) map[string]interface{} {
	return window(id, rateID, "overnight", start, end, extraRateID)
}

func flatRate(id, vehicleType, label string, value float64, unit string) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"vehicle_type": vehicleType,
		"type":         label,
		"value":        value,
		"unit":         unit,
	}
}

func window(id, rateID, windowType, start, end, extraRateID string) map[string]interface{} {
	w := map[string]interface{}{
		"id":          id,
		"rate_id":     rateID,
		"window_type": windowType,
		"start_time":  start,
		"end_time":    end,
	}
	if extraRateID != "" {
		w["extra_rate_id"] = extraRateID
	}
	return w
}

func threshold(id, source, target string, amount float64, autoApply bool) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"source_rate_id":   source,
		"target_rate_id":   target,
		"threshold_amount": amount,
		"auto_apply":       autoApply,
	}
}

func rateID(vehicleType, suffix string) string {
	return fmt.Sprintf("%s-%s", vehicleType, suffix)
}

func marshal(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
