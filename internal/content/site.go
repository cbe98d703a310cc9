package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Site is the static, non-essay content of the portfolio.
type Site struct {
	Profile Profile `yaml:"profile" json:"profile"`
	CV      CV      `yaml:"cv" json:"cv"`
	Catalog Catalog `yaml:"catalog" json:"catalog"`
}

// Profile is the home page.
type Profile struct {
	Name       string   `yaml:"name" json:"name"`
	Headline   string   `yaml:"headline" json:"headline"`
	Interests  []string `yaml:"interests" json:"interests"`
	Paragraphs []string `yaml:"paragraphs" json:"paragraphs"`
	Email      string   `yaml:"email" json:"email"`
	Phone      string   `yaml:"phone" json:"phone,omitempty"`
	Location   string   `yaml:"location" json:"location,omitempty"`
	Website    string   `yaml:"website" json:"website,omitempty"`
	Links      []Link   `yaml:"links" json:"links"`
}

// Link is an outbound contact link.
type Link struct {
	Label string `yaml:"label" json:"label"`
	URL   string `yaml:"url" json:"url"`
}

// CV is the curriculum vitae page.
type CV struct {
	Experience   []Experience  `yaml:"experience" json:"experience"`
	Education    []Education   `yaml:"education" json:"education"`
	Involvements []Involvement `yaml:"involvements" json:"involvements"`
	Skills       []string      `yaml:"skills" json:"skills"`
	Technologies []string      `yaml:"technologies" json:"technologies"`
}

type Experience struct {
	Title       string   `yaml:"title" json:"title"`
	Company     string   `yaml:"company" json:"company"`
	Location    string   `yaml:"location" json:"location"`
	Date        string   `yaml:"date" json:"date"`
	Description []string `yaml:"description" json:"description"`
}

type Education struct {
	Degree      string `yaml:"degree" json:"degree"`
	Institution string `yaml:"institution" json:"institution"`
	Date        string `yaml:"date" json:"date"`
	Details     string `yaml:"details" json:"details"`
}

type Involvement struct {
	Role         string   `yaml:"role" json:"role"`
	Organization string   `yaml:"organization" json:"organization"`
	Date         string   `yaml:"date" json:"date"`
	Details      []string `yaml:"details" json:"details"`
}

// Catalog is the writings index, grouped by category.
type Catalog []Category

// Category is one group on the writings index.
type Category struct {
	Title       string        `yaml:"title" json:"title"`
	Description string        `yaml:"description" json:"description"`
	Items       []CatalogItem `yaml:"items" json:"items"`
}

// CatalogItem is a link to a writing.
type CatalogItem struct {
	Title       string `yaml:"title" json:"title"`
	Href        string `yaml:"href" json:"href"`
	Abstract    string `yaml:"abstract" json:"abstract,omitempty"`
	LastUpdated string `yaml:"last_updated" json:"last_updated"`
	References  int    `yaml:"references" json:"references"`
	Backlinks   int    `yaml:"backlinks" json:"backlinks"`
}

//go:embed site.yaml
var defaultSite []byte

// DefaultSite returns the built-in profile, CV and catalog.
func DefaultSite() (Site, error) {
	return ParseSite(defaultSite)
}

// ParseSite decodes a site description.
func ParseSite(data []byte) (Site, error) {
	var s Site
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Site{}, fmt.Errorf("decode site: %w", err)
	}
	return s, nil
}
