package services

// ValidationError is a request problem the caller can fix. Handlers map it
// to a 400 with the message verbatim; anything else is a 500.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

var (
	ErrMissingFile        = &ValidationError{"No file uploaded"}
	ErrMissingUserAddress = &ValidationError{"User address required"}
	ErrInvalidUserAddress = &ValidationError{"Valid user address required"}
	ErrMissingRecordType  = &ValidationError{"Record type required"}
	ErrInvalidRecordType  = &ValidationError{"Invalid record type"}
	ErrMissingProviderID  = &ValidationError{"Provider ID required"}
	ErrFileTooLarge       = &ValidationError{"File size must be less than 10MB"}
	ErrUnsupportedType    = &ValidationError{"Invalid file type. Please upload PDF, JPEG, PNG, or DICOM files only."}
	ErrUnknownProvider    = &ValidationError{"Invalid provider ID"}
	ErrMissingIdentifier  = &ValidationError{"Document CID or Record ID required"}
)
