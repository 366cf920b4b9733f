package servicefile

import "github.com/MrSnakeDoc/pelican/internal/domain"

// File is the top-level structure of services.yaml.
type File struct {
	Services []domain.ServiceDescriptor `yaml:"services"`
}

// DefaultServices are seeded into the configuration on first start.
var DefaultServices = []domain.ServiceDescriptor{
	{
		Name:        "Golden Hind",
		URL:         "https://golden-hind.onrender.com/",
		Description: "Golden Hind Service API",
		Type:        "api",
	},
	{
		Name:        "Stellar Resolution",
		URL:         "https://stellar-resolution.onrender.com/unwise-labels/getLabels",
		Description: "Stellar Resolution Unwise Labels API",
		Type:        "api",
	},
}

// PlaceholderServices are sample entries purged from older configurations.
var PlaceholderServices = []string{
	"Portfolio Site",
	"Discord Bot",
	"Backend API",
	"Test Service",
	"Example Service",
}
