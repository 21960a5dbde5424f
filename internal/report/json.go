package report

import (
	"encoding/json"
	"io"
)

const (
	jsonIndentConstant  = "  "
	newlineByteConstant = "\n"
)

// WriteJSONDocument writes one indented JSON document followed by a newline.
func WriteJSONDocument(outputWriter io.Writer, document any) error {
	encodedDocument, marshalError := json.MarshalIndent(document, "", jsonIndentConstant)
	if marshalError != nil {
		return marshalError
	}
	if _, writeError := outputWriter.Write(encodedDocument); writeError != nil {
		return writeError
	}
	_, writeError := outputWriter.Write([]byte(newlineByteConstant))
	return writeError
}

// ReadJSONDocument decodes one JSON document into the target.
func ReadJSONDocument(inputReader io.Reader, target any) error {
	return json.NewDecoder(inputReader).Decode(target)
}
