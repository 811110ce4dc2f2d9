package types

// Column names of the CBS shipment and sub-trip exports.
const (
	ColYear             = "jaar"
	ColOriginPC6        = "laadPC6"
	ColOriginPC4        = "laadPC4"
	ColOriginMunicipal  = "laadGemeente"
	ColOriginNUTS3      = "laadNuts3"
	ColDestPC6          = "losPC6"
	ColDestPC4          = "losPC4"
	ColDestMunicipal    = "losGemeente"
	ColDestNUTS3        = "losNuts3"
	ColLogisticsClass   = "stadslogistieke_klasse_code"
	ColEmissionClass    = "euronormKlasse"
	ColFuelClass        = "brandstofsoortKlasse"
	ColOriginInROI      = "dummy_laadInROI"
	ColDestInROI        = "dummy_losInROI"
	ColShipmentCount    = "zendingAantal"
	ColGrossWeight      = "brutoGewicht"
	ColShipmentDistance = "zendingAfstandGemiddeld"
	ColVehicleType      = "voertuigsoortRDW"
	ColEmptyTripClass   = "stadslogistieke_klasse_legeRit_code"
	ColPayloadClass     = "laadvermogenCombinatie_klasse"
	ColUnladenClass     = "leeggewichtCombinatie_klasse"
	ColMaxWeightClass   = "maxToegestaanGewicht_klasse"
	ColTripCount        = "aantalDeelritten"
	ColEmptyTripCount   = "aantalLegeDeelritten"
	ColTripDistance     = "deelritAfstandGemiddeld"
	ColLoadFactor       = "beladingsgraadGewichtGemiddeld"
	ColShipmentsPerTrip = "aantalZendingenRitGemiddeld"
	ColMunicipalName    = "gemNaam"
	ColMunicipalCode    = "gemCode"
	ColLogisticsName    = "stadslogistieke_klasse"
	ColZone             = "zone"
	ColPC6              = "PC6"
)

// Zone columns are prefixed with "laad_" or "los_".
const (
	ZoneEmission      = "zone_emissiezonePC6"
	ZonePedestrian    = "zone_voetganger"
	ZoneClosedLoading = "zone_afgesloten_laden_lossen"
	ZoneClosed        = "zone_afgesloten"
)

// ShipmentColumnsRequired lists the columns every shipment export carries.
var ShipmentColumnsRequired = []string{
	ColYear,
	ColOriginPC6, ColOriginPC4, ColOriginMunicipal, ColOriginNUTS3,
	ColDestPC6, ColDestPC4, ColDestMunicipal, ColDestNUTS3,
	ColLogisticsClass, ColEmissionClass, ColFuelClass,
	ColOriginInROI, ColDestInROI,
	ColShipmentCount, ColGrossWeight, ColShipmentDistance,
}

// SubTripColumnsRequired lists the columns every sub-trip export carries.
var SubTripColumnsRequired = []string{
	ColYear, ColVehicleType,
	ColOriginPC6, ColOriginPC4, ColOriginMunicipal, ColOriginNUTS3,
	ColDestPC6, ColDestPC4, ColDestMunicipal, ColDestNUTS3,
	ColLogisticsClass, ColEmptyTripClass, ColEmissionClass, ColFuelClass,
	ColPayloadClass, ColUnladenClass, ColMaxWeightClass,
	ColOriginInROI, ColDestInROI,
	ColTripCount, ColEmptyTripCount, ColTripDistance, ColLoadFactor,
	ColShipmentsPerTrip, ColGrossWeight,
}

// ShipmentCompletenessFields are the shipment columns whose fill rate is
// reported per file.
var ShipmentCompletenessFields = []string{
	ColYear,
	ColOriginPC6, ColOriginPC4, ColOriginMunicipal, ColOriginNUTS3,
	ColDestPC6, ColDestPC4, ColDestMunicipal, ColDestNUTS3,
	ColLogisticsClass, ColEmissionClass, ColFuelClass,
	"laad_" + ZoneEmission, "los_" + ZoneEmission,
	ColShipmentCount, ColGrossWeight, ColShipmentDistance,
}

// SubTripCompletenessFields are the sub-trip columns whose fill rate is
// reported per file.
var SubTripCompletenessFields = []string{
	ColYear, ColVehicleType,
	ColOriginPC6, ColOriginPC4, ColOriginMunicipal, ColOriginNUTS3,
	ColDestPC6, ColDestPC4, ColDestMunicipal, ColDestNUTS3,
	ColLogisticsClass, ColEmissionClass, ColFuelClass,
	"laad_" + ZoneEmission, "los_" + ZoneEmission,
	ColTripCount, ColEmptyTripCount, ColGrossWeight, ColTripDistance, ColLoadFactor,
}
