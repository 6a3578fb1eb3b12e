package fim

import "strings"

// Category is a label drawn from the closed taxonomy. Any value outside
// this set is invalid and must be coerced to CategoryDefault before it
// reaches the Ledger.
type Category string

const (
	CategoryVivienda    Category = "Vivienda"
	CategoryServicios   Category = "Servicios"
	CategoryDespensa    Category = "Despensa"
	CategoryTransporte  Category = "Transporte"
	CategorySalud       Category = "Salud"
	CategoryEducacion   Category = "Educación"
	CategoryRestaurantes Category = "Restaurantes"
	CategoryCafeSnacks  Category = "Café/Snacks"
	CategoryOcio        Category = "Ocio"
	CategoryCompras     Category = "Compras"
	CategoryRegalos     Category = "Regalos"
	CategoryDeuda       Category = "Deuda"
	CategoryInversion   Category = "Inversión"
	CategoryIngreso     Category = "Ingreso"
	CategoryTransferencia Category = "Transferencia"

	// CategoryDefault is the lowest-risk discretionary bucket assigned when
	// a label is missing or falls outside the closed taxonomy.
	CategoryDefault = CategoryCompras
)

var closedTaxonomy = map[Category]struct{}{
	CategoryVivienda: {}, CategoryServicios: {}, CategoryDespensa: {},
	CategoryTransporte: {}, CategorySalud: {}, CategoryEducacion: {},
	CategoryRestaurantes: {}, CategoryCafeSnacks: {}, CategoryOcio: {},
	CategoryCompras: {}, CategoryRegalos: {},
	CategoryDeuda: {}, CategoryInversion: {}, CategoryIngreso: {}, CategoryTransferencia: {},
}

// CoerceCategory validates label against the closed taxonomy, returning
// CategoryDefault for anything unrecognized — the "dynamic JSON becomes a
// tagged variant" rule from spec.md §9.
func CoerceCategory(label string) Category {
	c := Category(strings.TrimSpace(label))
	if _, ok := closedTaxonomy[c]; ok {
		return c
	}
	return CategoryDefault
}

// AntExpenseThreshold is the default amount (in the ledger's currency
// units) below which the ant-expense rule applies.
const AntExpenseThreshold = 200

// antExpenseMerchantHints are substrings (lower-cased) that mark a merchant
// as a café/convenience/kiosk context for the ant-expense rule.
var antExpenseMerchantHints = []string{
	"cafe", "café", "coffee", "kiosko", "kiosco", "oxxo", "convenience", "tienda",
}

// ApplyAntExpenseRule implements spec.md §4.2's "small discretionary spend"
// heuristic: an amount under threshold at a café/convenience/kiosk merchant
// prefers Café/Snacks or Compras over Despensa. candidate is the label the
// classifier would otherwise assign; threshold <= 0 falls back to
// AntExpenseThreshold.
func ApplyAntExpenseRule(candidate Category, amount float64, merchant string, threshold float64) Category {
	if threshold <= 0 {
		threshold = AntExpenseThreshold
	}
	if candidate != CategoryDespensa {
		return candidate
	}
	if amount >= threshold {
		return candidate
	}
	lower := strings.ToLower(merchant)
	for _, hint := range antExpenseMerchantHints {
		if strings.Contains(lower, hint) {
			return CategoryCafeSnacks
		}
	}
	return candidate
}
