package carriers

import "regexp"

// Контракт на авторинг паттернов: правило "N цифр" одного перевозчика обязано
// явно исключать префиксы, зарезервированные за перевозчиком с более широким
// охватом. Конкретно: 22-значные номера с первыми двумя цифрами 90-95
// принадлежат USPS, поэтому 22-значное правило FedEx их не матчит (RE2 не
// поддерживает negative lookahead, диапазон выписан явно). При правке
// паттернов это исключение нужно перепроверять.

func newUPS() *Carrier {
	return &Carrier{
		Name:        "UPS",
		Code:        "ups",
		URLTemplate: "https://www.ups.com/track?tracknum={trackingNumber}",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`^1Z[0-9A-Z]{16}$`),      // стандартный 1Z-номер
			regexp.MustCompile(`^T\d{10}$`),             // UPS Freight
			regexp.MustCompile(`^H\d{10}$`),             // UPS Hundredweight
			regexp.MustCompile(`^\d{9}$`),               // UPS InfoNotice
			regexp.MustCompile(`^\d{10}$`),              // UPS Reference
			regexp.MustCompile(`^T\d{4}[A-Z]{3}\d{2}$`), // UPS Freight LTL
		},
	}
}

func newFedEx() *Carrier {
	return &Carrier{
		Name:        "FedEx",
		Code:        "fedex",
		URLTemplate: "https://www.fedex.com/fedextrack/?trknbr={trackingNumber}",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`^\d{12}$`),                // FedEx Express
			regexp.MustCompile(`^\d{14}$`),                // FedEx Express
			regexp.MustCompile(`^\d{15}$`),                // FedEx Ground
			regexp.MustCompile(`^\d{20}$`),                // FedEx SmartPost
			regexp.MustCompile(`^(?:[0-8]\d|9[6-9])\d{20}$`), // 22 цифры, кроме USPS-префиксов 90-95
			regexp.MustCompile(`^96\d{18}$`),              // 20 цифр с префиксом 96
			regexp.MustCompile(`^61\d{18}$`),              // 20 цифр с префиксом 61
		},
	}
}

func newDHL() *Carrier {
	return &Carrier{
		Name:        "DHL",
		Code:        "dhl",
		URLTemplate: "https://www.dhl.com/en/express/tracking.html?AWB={trackingNumber}&brand=DHL",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`^\d{10}$`),
			regexp.MustCompile(`^\d{11}$`),
			regexp.MustCompile(`^[A-Z]{3}\d{7}$`),
			regexp.MustCompile(`^[A-Z]{2}\d{9}$`),
			regexp.MustCompile(`^JD\d{18}$`),       // DHL eCommerce
			regexp.MustCompile(`^GM\d{16}$`),       // DHL Global Mail
			regexp.MustCompile(`^LX\d{9}[A-Z]{2}$`),
		},
	}
}

func newUSPS() *Carrier {
	return &Carrier{
		Name:        "USPS",
		Code:        "usps",
		URLTemplate: "https://tools.usps.com/go/TrackConfirmAction?tLabels={trackingNumber}",
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`^9[0-5]\d{20}$`),        // 22 цифры, зарезервированный диапазон 90-95
			regexp.MustCompile(`^E[A-Z]\d{9}[A-Z]{2}$`), // Priority Mail Express
			regexp.MustCompile(`^82\d{8}$`),
			regexp.MustCompile(`^[A-Z]{2}\d{9}[A-Z]{2}$`), // международный формат UPU
		},
	}
}
