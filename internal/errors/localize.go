package errors

import (
	"golang.org/x/text/language"
)

var supportedLanguages = []language.Tag{
	language.English,
	language.Czech,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// userMessages holds one message per terminal kind, indexed like supportedLanguages.
var userMessages = map[ErrorType][2]string{
	ErrorTypeNoCapableProvider: {
		"No configured AI service can analyze this kind of input.",
		"Žádná nastavená AI služba neumí tento typ vstupu analyzovat.",
	},
	ErrorTypeAllProvidersFailed: {
		"We could not estimate the nutrition values right now. Please try again.",
		"Nutriční hodnoty se teď nepodařilo odhadnout. Zkuste to prosím znovu.",
	},
	ErrorTypeCancelled: {
		"The analysis was cancelled.",
		"Analýza byla zrušena.",
	},
	ErrorTypeValidation: {
		"The input could not be processed. Please check it and try again.",
		"Vstup nelze zpracovat. Zkontrolujte ho prosím a zkuste to znovu.",
	},
	ErrorTypeNoProviderAvailable: {
		"No AI service is available at the moment.",
		"Momentálně není dostupná žádná AI služba.",
	},
	ErrorTypeConfiguration: {
		"The service is misconfigured.",
		"Služba je chybně nastavená.",
	},
	ErrorTypeNotFound: {
		"The requested item was not found.",
		"Požadovaná položka nebyla nalezena.",
	},
	ErrorTypeUnauthorized: {
		"Please sign in to continue.",
		"Pro pokračování se prosím přihlaste.",
	},
	ErrorTypeRateLimit: {
		"Too many requests. Please slow down.",
		"Příliš mnoho požadavků. Zkuste to prosím později.",
	},
}

var fallbackMessage = [2]string{
	"Something went wrong. Please try again.",
	"Něco se pokazilo. Zkuste to prosím znovu.",
}

// MatchLanguage returns the index of the best supported language for an
// Accept-Language header value. English is the default.
func MatchLanguage(acceptLanguage string) int {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return 0
	}
	_, index, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return 0
	}
	return index
}

// Localize returns a user-facing message for err in the language requested by
// acceptLanguage. Vendor and transport details never reach the message.
func Localize(err error, acceptLanguage string) string {
	idx := MatchLanguage(acceptLanguage)
	if msgs, ok := userMessages[TypeOf(err)]; ok {
		return msgs[idx]
	}
	return fallbackMessage[idx]
}
