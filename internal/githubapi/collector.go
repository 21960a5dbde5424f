package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

const (
	collectionPageSizeConstant         = 100
	maximumCollectedPagesConstant      = 100
	maximumCollectedItemsConstant      = 10000
	pageQueryParameterConstant         = "page"
	perPageQueryParameterConstant      = "per_page"
	queryStringSeparatorConstant       = "?"
	collectionTruncatedMessageConstant = "collection truncated at safety cap"
	logFieldItemCountConstant          = "item_count"
	jsonArrayOpeningByteConstant       = '['
)

var jsonLeadingWhitespaceConstant = []byte(" \t\r\n")

// CollectPages walks a paginated listing endpoint and returns every item as
// raw JSON. Responses may be bare arrays or wrapper objects; collectionKeys
// names the wrapper fields that hold the item array. Collection stops on the
// first short or empty page and is truncated at a fixed safety cap.
func (session *Session) CollectPages(executionContext context.Context, operation OperationName, apiPath string, queryParameters url.Values, collectionKeys []string) ([]json.RawMessage, error) {
	collectedItems := make([]json.RawMessage, 0)

	for pageNumber := 1; pageNumber <= maximumCollectedPagesConstant; pageNumber++ {
		pagedParameters := url.Values{}
		for parameterName, parameterValues := range queryParameters {
			pagedParameters[parameterName] = parameterValues
		}
		pagedParameters.Set(perPageQueryParameterConstant, strconv.Itoa(collectionPageSizeConstant))
		pagedParameters.Set(pageQueryParameterConstant, strconv.Itoa(pageNumber))

		payload, fetchError := session.fetchRawJSON(executionContext, operation, apiPath+queryStringSeparatorConstant+pagedParameters.Encode())
		if fetchError != nil {
			return nil, fetchError
		}

		pageItems, decodeError := decodeCollectionPayload(operation, payload, collectionKeys)
		if decodeError != nil {
			return nil, decodeError
		}
		if len(pageItems) == 0 {
			break
		}

		collectedItems = append(collectedItems, pageItems...)
		if len(collectedItems) >= maximumCollectedItemsConstant {
			session.logger.Warn(
				collectionTruncatedMessageConstant,
				zap.String(logFieldOperationConstant, string(operation)),
				zap.Int(logFieldItemCountConstant, len(collectedItems)),
			)
			collectedItems = collectedItems[:maximumCollectedItemsConstant]
			break
		}
		if len(pageItems) < collectionPageSizeConstant {
			break
		}
	}

	return collectedItems, nil
}

// decodeCollectionPayload extracts the item array from one listing page.
// Wrapper keys naming non-array fields (such as total_count) are skipped; a
// wrapper without any matching key decodes as an empty page.
func decodeCollectionPayload(operation OperationName, payload json.RawMessage, collectionKeys []string) ([]json.RawMessage, error) {
	trimmedPayload := bytes.TrimLeft(payload, string(jsonLeadingWhitespaceConstant))
	if len(trimmedPayload) == 0 {
		return nil, nil
	}

	if trimmedPayload[0] == jsonArrayOpeningByteConstant {
		var bareItems []json.RawMessage
		if unmarshalError := json.Unmarshal(trimmedPayload, &bareItems); unmarshalError != nil {
			return nil, &ResponseDecodingError{Operation: operation, Cause: unmarshalError}
		}
		return bareItems, nil
	}

	var wrapperObject map[string]json.RawMessage
	if unmarshalError := json.Unmarshal(trimmedPayload, &wrapperObject); unmarshalError != nil {
		return nil, &ResponseDecodingError{Operation: operation, Cause: unmarshalError}
	}

	for _, collectionKey := range collectionKeys {
		wrappedItems, keyPresent := wrapperObject[collectionKey]
		if !keyPresent {
			continue
		}
		var envelopeItems []json.RawMessage
		if unmarshalError := json.Unmarshal(wrappedItems, &envelopeItems); unmarshalError != nil {
			continue
		}
		return envelopeItems, nil
	}

	return nil, nil
}
