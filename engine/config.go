package engine

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/datasources/geopackage"
	"github.com/pdok/go-wfs-server/ogc/wfs/datasources/postgis"
	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// ReadConfigFile loads and unmarshals a YAML config file, expanding
// environment variables in the raw bytes first so deployments can inject
// secrets (datastore DSNs) without templating the file itself.
func ReadConfigFile(configFile string) *Config {
	yamlData, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatalf("failed to read config file %v", err)
	}

	yamlData = []byte(os.ExpandEnv(string(yamlData)))

	var result *Config
	if err := yaml.Unmarshal(yamlData, &result); err != nil {
		log.Fatalf("failed to unmarshal config file %v", err)
	}
	return result
}

// Config is the WFS server's YAML configuration tree, per spec §6's
// configuration surface.
type Config struct {
	Title        string  `yaml:"title"`
	Abstract     string  `yaml:"abstract"`
	BaseURL      YAMLURL `yaml:"baseUrl"`
	Fees         string  `yaml:"fees"`
	AccessConstraints string `yaml:"accessConstraints"`

	Provider ProviderConfig `yaml:"provider"`

	OgcAPI OgcAPIWfs `yaml:"ogcApi"`
}

// ProviderConfig is the ows:ServiceProvider block, config-sourced.
type ProviderConfig struct {
	Name          string `yaml:"name"`
	Site          string `yaml:"site"`
	ContactPerson string `yaml:"contactPerson"`
	ContactEmail  string `yaml:"contactEmail"`
}

// OgcAPIWfs is the WFS-specific configuration subtree: feature-type
// declarations, datastore connection and the policy flags spec §6 lists.
type OgcAPIWfs struct {
	FeatureTypes []FeatureTypeConfig `yaml:"featureTypes"`

	GeoPackage *geopackage.Config `yaml:"geopackage"`
	PostGIS    *postgis.Config    `yaml:"postgis"`

	DefaultPageSize int            `yaml:"defaultPageSize"`
	MaxPageSize     MaxPageSize    `yaml:"maxPageSize"`

	CapabilitiesBoundingBox bool `yaml:"capabilitiesBoundingBox"`
	UseDbRendering          bool `yaml:"useDbRendering"`
	SupportedCrsOnly        bool `yaml:"supportedCrsOnly"`

	// CountNumberMatched selects domain.CountPolicy: 0 never, 1 always, 2 first page only.
	CountNumberMatched int `yaml:"countNumberMatched"`

	WfsStrictStandard  bool `yaml:"wfsStrictStandard"`
	WrapFilterDbErrors bool `yaml:"wrapFilterDbErrors"`

	ForceXyEpsg4326 bool `yaml:"forceXyEpsg4326"`
	ForceXyOldCrs   bool `yaml:"forceXyOldCrs"`
}

// CountPolicy translates the configured CountNumberMatched option into a
// domain.CountPolicy.
func (o OgcAPIWfs) CountPolicy() domain.CountPolicy {
	switch o.CountNumberMatched {
	case 1:
		return domain.CountAlways
	case 2:
		return domain.CountFirstPageOnly
	default:
		return domain.CountNever
	}
}

// CRSPolicy translates the legacy axis-order coercion flags into a crs.Policy.
func (o OgcAPIWfs) CRSPolicy() crs.Policy {
	return crs.Policy{ForceXyEpsg4326: o.ForceXyEpsg4326, ForceXyOldCrs: o.ForceXyOldCrs}
}

// MaxPageSizeFor returns the configured upper bound on COUNT for f, or 0
// (no bound) when unset.
func (o OgcAPIWfs) MaxPageSizeFor(f string) int {
	switch f {
	case "geojson":
		return o.MaxPageSize.GeoJSON
	case "csv":
		return o.MaxPageSize.CSV
	}
	return o.MaxPageSize.Default
}

// MaxPageSize is the per-renderer upper bound on COUNT, per spec §6's
// "MaxPageSize{Default,GeoJson,Csv}" option; zero means unbounded.
type MaxPageSize struct {
	Default int `yaml:"default"`
	GeoJSON int `yaml:"geoJson"`
	CSV     int `yaml:"csv"`
}

// FieldConfig is the YAML shape of xsd.FieldSpec.
type FieldConfig struct {
	XMLName        string        `yaml:"name"`
	XMLNamespace   string        `yaml:"namespace"`
	DataSourcePath string        `yaml:"dataSourcePath"`
	DBKind         string        `yaml:"dbKind"`

	MinOccurs          int           `yaml:"minOccurs"`
	MaxOccursUnbounded bool          `yaml:"maxOccursUnbounded"`
	Nillable           bool          `yaml:"nillable"`
	IsAttribute        bool          `yaml:"isAttribute"`
	IdentityIsLong     bool          `yaml:"identityIsLong"`

	Children []FieldConfig `yaml:"children"`
}

func (f FieldConfig) toSpec() xsd.FieldSpec {
	children := make([]xsd.FieldSpec, len(f.Children))
	for i, c := range f.Children {
		children[i] = c.toSpec()
	}
	return xsd.FieldSpec{
		XMLName:            f.XMLName,
		XMLNamespace:       f.XMLNamespace,
		DataSourcePath:     f.DataSourcePath,
		DBKind:             xsd.DBFieldKind(f.DBKind),
		MinOccurs:          f.MinOccurs,
		MaxOccursUnbounded: f.MaxOccursUnbounded,
		Nillable:           f.Nillable,
		IsAttribute:        f.IsAttribute,
		IdentityIsLong:     f.IdentityIsLong,
		Children:           children,
	}
}

// FeatureTypeConfig is the YAML shape of a declared feature type, per spec
// §4.2's declarative feature-type specification.
type FeatureTypeConfig struct {
	Namespace   string `yaml:"namespace"`
	LocalName   string `yaml:"name"`
	GmlIDPrefix string `yaml:"gmlIdPrefix"`
	GmlIDPath   string `yaml:"gmlIdPath"`
	IdentityIsLong bool `yaml:"identityIsLong"`
	NamePath    string `yaml:"namePath"`

	Title    string   `yaml:"title"`
	Abstract string   `yaml:"abstract"`
	Keywords []string `yaml:"keywords"`

	DefaultCRS    string   `yaml:"defaultCrs"`
	AdditionalCRS []string `yaml:"additionalCrs"`

	// BBoxPolicy: "never", "datastore" or "precomputed".
	BBoxPolicy      string     `yaml:"bboxPolicy"`
	PrecomputedBBox *BBoxConfig `yaml:"precomputedBBox"`

	DatasourceCollection string `yaml:"datasourceCollection"`

	Fields []FieldConfig `yaml:"fields"`
}

// BBoxConfig is a plain lower/upper corner pair, CRS84.
type BBoxConfig struct {
	LowerX float64 `yaml:"lowerX"`
	LowerY float64 `yaml:"lowerY"`
	UpperX float64 `yaml:"upperX"`
	UpperY float64 `yaml:"upperY"`
}

// BuildFeatureType resolves fc into an *xsd.FeatureType, building its schema
// graph from the declared fields, per spec §4.2.
func (fc FeatureTypeConfig) BuildFeatureType(policy crs.Policy) (*xsd.FeatureType, error) {
	fields := make([]xsd.FieldSpec, len(fc.Fields))
	for i, f := range fc.Fields {
		fields[i] = f.toSpec()
	}

	graph, root := xsd.BuildFeatureType(xsd.FeatureTypeSpec{
		Namespace:      fc.Namespace,
		LocalName:      fc.LocalName,
		GmlIDPrefix:    fc.GmlIDPrefix,
		GmlIDPath:      fc.GmlIDPath,
		IdentityIsLong: fc.IdentityIsLong,
		NamePath:       fc.NamePath,
		Fields:         fields,
	})

	defaultCRS := crs.CRS84
	if fc.DefaultCRS != "" {
		parsed, err := crs.FromURI(fc.DefaultCRS, policy)
		if err != nil {
			return nil, fmt.Errorf("feature type %s: %w", fc.LocalName, err)
		}
		defaultCRS = parsed
	}
	var additional []*crs.CRS
	for _, uri := range fc.AdditionalCRS {
		parsed, err := crs.FromURI(uri, policy)
		if err != nil {
			return nil, fmt.Errorf("feature type %s: %w", fc.LocalName, err)
		}
		additional = append(additional, parsed)
	}

	ft := &xsd.FeatureType{
		Namespace:            fc.Namespace,
		LocalName:            fc.LocalName,
		Graph:                graph,
		Root:                 root,
		DefaultCRS:           defaultCRS,
		AdditionalCRS:        additional,
		Title:                fc.Title,
		Abstract:             fc.Abstract,
		Keywords:             fc.Keywords,
		DatasourceCollection: fc.DatasourceCollection,
	}

	switch fc.BBoxPolicy {
	case "datastore":
		ft.BBoxPolicy = xsd.BBoxFromDatastore
	case "precomputed":
		ft.BBoxPolicy = xsd.BBoxPrecomputed
		if fc.PrecomputedBBox != nil {
			b := crs.NewBBox(crs.CRS84, fc.PrecomputedBBox.LowerX, fc.PrecomputedBBox.LowerY,
				fc.PrecomputedBBox.UpperX, fc.PrecomputedBBox.UpperY)
			ft.PrecomputedBBox = &b
		}
	default:
		ft.BBoxPolicy = xsd.BBoxNever
	}

	return ft, nil
}

// YAMLURL parses a string to a URL and trims a trailing slash, so the rest
// of the code can append a longer path without worrying about double
// slashes.
type YAMLURL struct {
	*url.URL
}

func (j *YAMLURL) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsedURL, err := url.ParseRequestURI(strings.TrimSuffix(s, "/"))
	j.URL = parsedURL
	return err
}
