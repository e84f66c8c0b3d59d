package tabular

import "github.com/iota-uz/ledgerdesk/pkg/serrors"

var (
	ErrParse          = serrors.NewError("IMPORT_PARSE_FAILED", "failed to parse delimited text", "Import.Errors.Parse")
	ErrHeaderNotFound = serrors.NewError("IMPORT_HEADER_NOT_FOUND", "no row matches the expected header", "Import.Errors.HeaderNotFound")
	ErrNoRows         = serrors.NewError("IMPORT_NO_ROWS", "no rows left after cleaning", "Import.Errors.NoRows")
)
