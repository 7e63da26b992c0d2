package document

import "github.com/chmc/wbms-api/internal/docx"

// DefaultTemplate is a plain examination form carrying every placeholder the
// generator fills. Clinics normally replace it with their own letterhead.
func DefaultTemplate() *docx.Document {
	return docx.New(
		[]docx.Cell{
			{
				"Patient: " + PlaceholderPatientName,
				"Age: " + PlaceholderAge + "\tSex: " + PlaceholderSex,
				"Examination: " + PlaceholderServiceType,
				"Date: " + PlaceholderDate,
				"File No.: " + PlaceholderFileNo,
			},
			{PlaceholderPatientImage},
		},
		[]string{
			PlaceholderSignature,
			PlaceholderDoctorName,
			"Verification code: " + PlaceholderUniqueCode,
		},
	)
}

// DefaultTemplateSource serves DefaultTemplate.
func DefaultTemplateSource() ([]byte, error) {
	return DefaultTemplate().Bytes()
}
