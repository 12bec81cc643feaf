package specimen

// Field names. Source terms follow Darwin Core; derived fields are named
// after what produced them.
const (
	FieldID = "id"

	FieldScientificName     = "scientificName"
	FieldInstitutionCode    = "institutionCode"
	FieldInstitutionID      = "institutionID"
	FieldCollectionCode     = "collectionCode"
	FieldCollectionID       = "collectionID"
	FieldCatalogNumber      = "catalogNumber"
	FieldPhysicalSpecimenID = "physicalSpecimenID"
	FieldIdentifier         = "identifier"
	FieldKingdom            = "kingdom"

	FieldLocality         = "locality"
	FieldCountry          = "country"
	FieldCountryCode      = "countryCode"
	FieldDecimalLatitude  = "decimalLatitude"
	FieldDecimalLongitude = "decimalLongitude"

	FieldVernacularName  = "vernacularName"
	FieldAssociatedMedia = "associatedMedia"
	FieldAnnotations     = "annotations"
	FieldInterpretations = "interpretations"
	FieldReferences      = "associatedReferences"

	FieldCanonicalName = "canonicalName"
	FieldTaxonID       = "taxonID"
	FieldCoLTaxonID    = "colTaxonID"
	FieldWikidataID    = "wikidataID"
	FieldRegion        = "region"
	FieldMIDSLevel     = "midsLevel"
	FieldEnrichment    = "enrichment"
)

// NaturalKeyFields lists the fields that make up the natural key.
var NaturalKeyFields = []string{
	FieldScientificName,
	FieldInstitutionCode,
	FieldPhysicalSpecimenID,
}
