package compatibility

// ClassCode identifies a DOT hazard class such as "2.1" or "8".
type ClassCode string

const (
	ClassExplosive         ClassCode = "1"
	ClassFlammableGas      ClassCode = "2.1"
	ClassNonFlammableGas   ClassCode = "2.2"
	ClassToxicGas          ClassCode = "2.3"
	ClassFlammableLiquid   ClassCode = "3"
	ClassFlammableSolid    ClassCode = "4.1"
	ClassSpontaneouslyComb ClassCode = "4.2"
	ClassDangerousWhenWet  ClassCode = "4.3"
	ClassOxidizer          ClassCode = "5.1"
	ClassOrganicPeroxide   ClassCode = "5.2"
	ClassToxic             ClassCode = "6.1"
	ClassRadioactive       ClassCode = "7"
	ClassCorrosive         ClassCode = "8"
	ClassMiscellaneous     ClassCode = "9"
)

// ClassInfo is the reference data seeded into the hazard class catalog.
type ClassInfo struct {
	Code        ClassCode
	Name        string
	Description string
	LogoPath    string
}

var catalog = []ClassInfo{
	{ClassExplosive, "Explosives", "Substances with a mass explosion, projection or fire hazard", "/uploads/hazard/class_1.png"},
	{ClassFlammableGas, "Flammable Gas", "Gases that ignite on contact with an ignition source", "/uploads/hazard/class_2_1.png"},
	{ClassNonFlammableGas, "Non-Flammable Gas", "Compressed, non-flammable and non-toxic gases", "/uploads/hazard/class_2_2.png"},
	{ClassToxicGas, "Toxic Gas", "Gases known to be toxic or corrosive to humans", "/uploads/hazard/class_2_3.png"},
	{ClassFlammableLiquid, "Flammable Liquid", "Liquids with a flash point at or below 60 °C", "/uploads/hazard/class_3.png"},
	{ClassFlammableSolid, "Flammable Solid", "Readily combustible solids and self-reactive substances", "/uploads/hazard/class_4_1.png"},
	{ClassSpontaneouslyComb, "Spontaneously Combustible", "Materials liable to spontaneous heating in air", "/uploads/hazard/class_4_2.png"},
	{ClassDangerousWhenWet, "Dangerous When Wet", "Materials that emit flammable gases in contact with water", "/uploads/hazard/class_4_3.png"},
	{ClassOxidizer, "Oxidizer", "Materials that yield oxygen and intensify combustion", "/uploads/hazard/class_5_1.png"},
	{ClassOrganicPeroxide, "Organic Peroxide", "Thermally unstable organic compounds containing O-O", "/uploads/hazard/class_5_2.png"},
	{ClassToxic, "Toxic Substance", "Materials toxic by ingestion, inhalation or skin contact", "/uploads/hazard/class_6_1.png"},
	{ClassRadioactive, "Radioactive", "Materials emitting ionizing radiation", "/uploads/hazard/class_7.png"},
	{ClassCorrosive, "Corrosive", "Materials that destroy skin tissue or corrode metals", "/uploads/hazard/class_8.png"},
	{ClassMiscellaneous, "Miscellaneous", "Materials presenting a hazard not covered by other classes", "/uploads/hazard/class_9.png"},
}

var knownClasses = func() map[ClassCode]struct{} {
	set := make(map[ClassCode]struct{}, len(catalog))
	for _, info := range catalog {
		set[info.Code] = struct{}{}
	}
	return set
}()

// Catalog returns a copy of the hazard class reference data in display order.
func Catalog() []ClassInfo {
	out := make([]ClassInfo, len(catalog))
	copy(out, catalog)
	return out
}

// IsKnown reports whether code belongs to the hazard class vocabulary.
func IsKnown(code ClassCode) bool {
	_, ok := knownClasses[code]
	return ok
}
