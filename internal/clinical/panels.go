package clinical

func nonZero(class int64) bool { return class != 0 }

func isOne(class int64) bool { return class == 1 }

// DiabetesPanel follows the Pima diabetes column order.
var DiabetesPanel = Panel{
	Kind:  Diabetes,
	Title: "Diabetes",
	Fields: []Field{
		{Name: "pregnancies", Aliases: []string{"pregnancy"}},
		{Name: "glucose", Aliases: []string{"gluc"}},
		{Name: "blood_pressure", Aliases: []string{"bp"}},
		{Name: "skin_thickness", Aliases: []string{"skt", "skinfold"}},
		{Name: "insulin"},
		{Name: "bmi"},
		{Name: "pedigree", Aliases: []string{"diabetes_pedigree_function"}},
		{Name: "age"},
	},
	Positive: "The person is diabetic",
	Negative: "The Person is Not Diabetic",
	Remedies: []string{
		"Diet: Balanced diet",
		"Exercise: To help improve insulin & blood pressure control",
		"Weight Management",
		"Stress Management",
		"Medication: Metformin, Sulfonylureas, Glitazones, Glinides, GLP-1, SGLT2 inhibitors, DPP-4 inhibitors",
		"Insulin Therapy: Insulin Administration",
		"Monitoring: Continuous glucose & blood glucose monitoring",
	},
	IsPositive: nonZero,
}

// HeartPanel follows the UCI Cleveland heart disease column order.
var HeartPanel = Panel{
	Kind:  Heart,
	Title: "Heart disease",
	Fields: []Field{
		{Name: "age"},
		{Name: "sex", Encoding: Sex, Default: "male"},
		{Name: "cp"},
		{Name: "trestbps", Aliases: []string{"rbp"}},
		{Name: "chol"},
		{Name: "fbs"},
		{Name: "restecg", Aliases: []string{"rer"}},
		{Name: "thalach", Aliases: []string{"mhr"}},
		{Name: "exang", Aliases: []string{"eia"}},
		{Name: "oldpeak", Aliases: []string{"st"}},
		{Name: "slope"},
		{Name: "ca", Aliases: []string{"vessels"}},
		{Name: "thal", Aliases: []string{"defects"}},
	},
	Positive: "The person is having heart disease",
	Negative: "The person does not have any heart disease",
	Remedies: []string{
		"Diet: low in saturated trans fats, sodium and choletral",
		"Exercise: Regular Physical Exercise",
		"Smoking Cessation",
		"Weight Management",
		"Medication: ACE inhibitors and ARBs, SGLT2 inhibitors, Beta blockers, Diuretics, Statins, Antiplatelets",
		"Insulin Therapy: Insulin Administration",
		"Heart Transplant",
	},
	IsPositive: isOne,
}

// KidneyPanel follows the chronic kidney disease dataset column order.
// Numeric fields default to 0 when left blank, except blood urea and
// hemoglobin; the yes/no findings default to "no".
var KidneyPanel = Panel{
	Kind:  Kidney,
	Title: "Chronic kidney disease",
	Fields: []Field{
		{Name: "age", Default: "0"},
		{Name: "blood_pressure", Default: "0"},
		{Name: "specific_gravity", Default: "0"},
		{Name: "albumin", Default: "0"},
		{Name: "sugar", Default: "0"},
		{Name: "blood_glucose", Aliases: []string{"blood_glucose_random"}, Default: "0"},
		{Name: "blood_urea"},
		{Name: "serum_creatinine", Default: "0"},
		{Name: "sodium", Default: "0"},
		{Name: "potassium", Default: "0"},
		{Name: "hemoglobin"},
		{Name: "packed_cell_volume", Default: "0"},
		{Name: "white_blood_cell_count", Aliases: []string{"white_bc"}, Default: "0"},
		{Name: "red_blood_cell_count", Aliases: []string{"red_bc"}, Default: "0"},
		{Name: "red_blood_cells", Aliases: []string{"rbc"}, Default: "0"},
		{Name: "pus_cells_normal", Encoding: YesNo, Default: "no"},
		{Name: "pus_cell_clumps_present", Aliases: []string{"puss_cell_clumps_present"}, Encoding: YesNo, Default: "no"},
		{Name: "bacteria_present", Encoding: YesNo, Default: "no"},
		{Name: "hypertension", Encoding: YesNo, Default: "no"},
		{Name: "diabetes_mellitus", Encoding: YesNo, Default: "no"},
		{Name: "coronary_artery_disease", Encoding: YesNo, Default: "no"},
		{Name: "appetite", Encoding: YesNo, Default: "no"},
		{Name: "pedal_edema", Aliases: []string{"radal_edema"}, Encoding: YesNo, Default: "no"},
		{Name: "anaemia", Aliases: []string{"anemia"}, Encoding: YesNo, Default: "no"},
	},
	Positive: "The person has kidney issues",
	Negative: "The Person does not have kidney issues",
	Remedies: []string{
		"Diatery changes: limit sodium, phosphorus  and  potassium intake",
		"Exercise",
		"Weight Management",
		"Medications: ACE inhibitors and ARBs, SGLT2 inhibitors",
		"Dialysis",
		"Kidney Transplant",
		"Addressing underlying condition (diabetes and high bp)",
	},
	IsPositive: nonZero,
}
