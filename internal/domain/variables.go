package domain

import "strings"

// FileCategory is the model output file a variable is stored in.
type FileCategory string

// Model output file categories.
const (
	CategoryGridT  FileCategory = "gridT"
	CategoryPtrcT  FileCategory = "ptrcT"
	CategoryDiadT  FileCategory = "diadT"
	CategoryIceMod FileCategory = "icemod"
	CategoryFlxT   FileCategory = "flxT"
	CategoryGridU  FileCategory = "gridU"
	CategoryGridV  FileCategory = "gridV"
	CategoryGridW  FileCategory = "gridW"
)

// fileCategories lists variable names per file category. Lookup walks the
// list in order, so a name present in two categories resolves to the first.
var fileCategories = []struct {
	category FileCategory
	names    []string
}{
	{CategoryGridT, []string{
		"votemper", "vosaline", "sossheig", "somxl010", "sohefldo",
		"soshfldo", "sowaflup", "sowafldp", "iowaflup", "sowaflcd",
		"solhflup", "solwfldo", "sosbhfup",
	}},
	{CategoryPtrcT, []string{
		"DIC", "Alkalini", "O2", "CaCO3", "PO4", "POC", "Si", "PHY",
		"ZOO", "DOC", "PHY2", "ZOO2", "DSi", "Fer", "BFe", "GOC",
		"SFe", "DFe", "GSi", "NFe", "NCHL", "DCHL", "NO3", "NH4",
		"chl", "CHL",
	}},
	{CategoryDiadT, []string{
		"Cflx", "Oflx", "Kg", "Delc", "PMO", "PMO2", "ExpFe1", "ExpFe2",
		"ExpSi", "ExpCaCO3", "heup", "Fedep", "Nfix", "PH", "CO3",
		"CO3sat", "PAR", "PPPHY", "PPPHY2", "PPNEWN", "PPNEWD",
		"PBSi", "PFeN", "PFeD", "pp", "PP",
	}},
	{CategoryIceMod, []string{
		"isnowthi", "iicethic", "iiceprod", "ileadfra", "iicetemp", "ioceflxb",
		"iocesafl", "iicevelu", "iicevelv", "iocestru", "iocestrv",
		"iicestru", "iicestrv", "isursenf", "isurlatf", "isurlowf",
		"isurshwf", "iicesenf", "iicelatf",
	}},
	{CategoryFlxT, []string{
		"solhflup", "solwfldo", "sosbhfup", "soshfldo", "sohefldo",
		"sohefldp", "sowaflup", "sowaflcd", "sowafldp", "sohumspe", "sotemair",
		"sowindsp", "sowapre", "soccov", "sornf",
	}},
	{CategoryGridU, []string{"vozocrtx", "sozotaux"}},
	{CategoryGridV, []string{"vomecrty", "sometauy"}},
	{CategoryGridW, []string{"vovecrtz", "votkeavt"}},
}

// CategoryOf returns the file category a variable is stored in.
// Names are matched case-sensitively, as in the model output.
func CategoryOf(name string) (FileCategory, bool) {
	for _, fc := range fileCategories {
		for _, n := range fc.names {
			if n == name {
				return fc.category, true
			}
		}
	}
	return "", false
}

// DerivedComponents returns the model variables summed to build a derived
// quantity, e.g. total primary production from both phytoplankton classes.
func DerivedComponents(name string) ([]string, bool) {
	switch name {
	case "pp", "PP":
		return []string{"PPPHY", "PPPHY2"}, true
	case "chl", "CHL":
		return []string{"NCHL", "DCHL"}, true
	}
	return nil, false
}

// VariableInfo holds plotting metadata and unit conversions for a variable.
type VariableInfo struct {
	LongName  string
	ShortName string
	Unit      string  // Unit tag, see the plot package for display strings.
	MCoef     float64 // Model to display unit coefficient.
	OCoef     float64 // Observation to display unit coefficient.
}

// Descriptor field names accepted by DescriptorOf.
const (
	FieldLongName  = "long_name"
	FieldShortName = "short_name"
	FieldUnit      = "unit"
	FieldMCoef     = "model_coefficient"
	FieldOCoef     = "obs_coefficient"
)

// Variables is the descriptor table keyed by lowercase variable name.
var Variables = map[string]VariableInfo{
	"votemper": {LongName: "Temperature", ShortName: "T", Unit: "degC", MCoef: 1, OCoef: 1},
	"vosaline": {LongName: "Salinity", ShortName: "S", Unit: " ", MCoef: 1, OCoef: 1},
	"somxl010": {LongName: "Mixed layer depth", ShortName: "MLD", Unit: "m", MCoef: 1, OCoef: 1},
	"eke":      {LongName: "EKE", ShortName: "EKE", Unit: "cm2s2", MCoef: 1e4, OCoef: 1e4},
	"ohc":      {LongName: "Heat content", ShortName: "OHC", Unit: "jm2", MCoef: 1e-9, OCoef: 1e-9},
	"no3":      {LongName: "Nitrate", ShortName: "NO3", Unit: "mmolperl", MCoef: 131147.540983607, OCoef: 1},
	"po4":      {LongName: "Phosphate", ShortName: "PO4", Unit: "mmolperl", MCoef: 8196.7213114754, OCoef: 1},
	"o2":       {LongName: "Dissolved Oxygen", ShortName: "O2", Unit: "umolperl", MCoef: 1e6, OCoef: 43.570 * 1.03},
	"si":       {LongName: "Silicate", ShortName: "Si", Unit: "mmolperl", MCoef: 1e6, OCoef: 1},
	"fer":      {LongName: "Diss. Iron", ShortName: "DFe", Unit: "nmolperl", MCoef: 1e9, OCoef: 1},
	"dic":      {LongName: "Dissolved Inorganic Carbon", ShortName: "DIC", Unit: "umolkg", MCoef: 1e6 * (1 / 1.024), OCoef: 1},
	"alkalini": {LongName: "Total Alkalinity", ShortName: "TA", Unit: "umolkg", MCoef: 1e6 * (1 / 1.024), OCoef: 1},
	"fco2":     {LongName: "Air–sea flux of CO₂", ShortName: "FCO2", Unit: "molm2peryr", MCoef: 1, OCoef: 1},
	"pco2":     {LongName: "Partial Pressure of CO₂", ShortName: "pCO2", Unit: "uatm", MCoef: 1, OCoef: 1},
	"chl":      {LongName: "Total chlorophyll-a", ShortName: "Tot. chl", Unit: "mgm3", MCoef: 1e6, OCoef: 1},
	"pp":       {LongName: "Total primary production", ShortName: "Tot. PP", Unit: "mgm2perd", MCoef: 12.01071 * 24 * 3600 * 6, OCoef: 1},
	"ileadfra": {LongName: "Ice fraction", ShortName: "Ice", Unit: "percent", MCoef: 1, OCoef: 1},
	"iicethic": {LongName: "Ice thickness", ShortName: "Ice", Unit: "m", MCoef: 1, OCoef: 1},
}

// LookupVariable returns the descriptor for a variable, case-insensitively.
func LookupVariable(name string) (VariableInfo, bool) {
	info, ok := Variables[strings.ToLower(name)]
	return info, ok
}

// DescriptorOf returns one descriptor field for a variable.
//
// Unknown variables are not an error: string fields (unit, long_name) come
// back empty and every other field comes back as 1 so it can be used as a
// neutral scale factor.
func DescriptorOf(name, field string) any {
	info, ok := LookupVariable(name)
	if !ok {
		if field == FieldUnit || field == FieldLongName {
			return ""
		}
		return 1.0
	}
	switch field {
	case FieldLongName:
		return info.LongName
	case FieldShortName:
		return info.ShortName
	case FieldUnit:
		return info.Unit
	case FieldMCoef, "mcoef":
		return info.MCoef
	case FieldOCoef, "ocoef":
		return info.OCoef
	}
	return 1.0
}

// VariableString returns a string descriptor field, or "" when it is not a string.
func VariableString(name, field string) string {
	s, _ := DescriptorOf(name, field).(string)
	return s
}

// VariableCoefficient returns a numeric descriptor field, defaulting to 1.
func VariableCoefficient(name, field string) float64 {
	if f, ok := DescriptorOf(name, field).(float64); ok {
		return f
	}
	return 1
}
