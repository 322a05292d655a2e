// Package geopackage implements the datasources.Datastore interface against
// a local SpatiaLite-extended GeoPackage file, per spec §4.6.
package geopackage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/pdok/go-wfs-server/ogc/wfs/datasources"
	"github.com/pdok/go-wfs-server/ogc/wfs/domain"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"

	_ "github.com/mattn/go-sqlite3" // import for side effect (= sqlite3 driver) only
)

const sqliteDriverName = "sqlite3_with_extensions"

// Config configures a single local GeoPackage file backend.
type Config struct {
	File         string        `yaml:"file"`
	QueryTimeout time.Duration `yaml:"queryTimeout"`
}

func (c Config) getQueryTimeout() time.Duration {
	if c.QueryTimeout == 0 {
		return 15 * time.Second
	}
	return c.QueryTimeout
}

func init() {
	driver := &sqlite3.SQLiteDriver{
		Extensions: []string{
			path.Join(os.Getenv("SPATIALITE_LIBRARY_PATH"), "mod_spatialite"),
		},
	}
	sql.Register(sqliteDriverName, sqlhooks.Wrap(driver, &datasources.SQLLog{}))
}

type featureTable struct {
	TableName          string `db:"table_name"`
	Identifier         string `db:"identifier"`
	GeometryColumnName string `db:"column_name"`
}

// GeoPackage is a datasources.Datastore backed by a SpatiaLite-extended
// GeoPackage file, one SQLite table per feature type.
type GeoPackage struct {
	db           *sqlx.DB
	queryTimeout time.Duration

	tableByTypeName map[xsd.QName]*featureTable
}

// NewGeoPackage opens cfg.File and matches each registered feature type to
// its backing table via gpkg_contents.identifier.
func NewGeoPackage(cfg Config, featureTypes []*xsd.FeatureType) *GeoPackage {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", cfg.File)
	db, err := sqlx.Open(sqliteDriverName, dsn)
	if err != nil {
		log.Fatalf("failed to open geopackage %s: %v", cfg.File, err)
	}

	g := &GeoPackage{db: db, queryTimeout: cfg.getQueryTimeout()}

	metadata, err := readDriverMetadata(db)
	if err != nil {
		log.Fatalf("failed to connect with geopackage: %v", err)
	}
	log.Println(metadata)

	tables, err := readGpkgContents(db)
	if err != nil {
		log.Fatal(err)
	}
	g.tableByTypeName = matchFeatureTypesToTables(featureTypes, tables)

	g.assertIndexExistOnFeatureTables(featureTypes)

	return g
}

func (g *GeoPackage) Close() {
	_ = g.db.Close()
}

func (g *GeoPackage) GetFeatures(ctx context.Context, ft *xsd.FeatureType, options datasources.FeatureOptions) (*domain.FeatureCollection, error) {
	table, ok := g.tableByTypeName[ft.QName()]
	if !ok {
		return nil, fmt.Errorf("feature type %s has no backing table in geopackage", ft.QName())
	}

	queryCtx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	idColumn := identityColumn(ft)
	query, args, err := makeFeaturesQuery(table, idColumn, options)
	if err != nil {
		return nil, fmt.Errorf("failed to build features query: %w", err)
	}

	stmt, err := g.db.PrepareNamedContext(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare query %q: %w", query, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryxContext(queryCtx, args)
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", query, err)
	}
	defer rows.Close()

	features, prevNext, err := domain.MapRowsToFeatures(rows, ft, readGpkgGeometry)
	if err != nil {
		return nil, err
	}

	result := &domain.FeatureCollection{
		TypeName:       ft.QName(),
		Features:       features,
		NumberReturned: len(features),
		TimeStamp:      time.Now(),
		Cursors:        domain.NewCursors(prevNext, options.Cursor.FiltersChecksum),
	}
	if options.CountPolicy == domain.CountAlways ||
		(options.CountPolicy == domain.CountFirstPageOnly && options.Cursor.FeatureID == "") {
		count, err := g.countFeatures(queryCtx, table, idColumn, options)
		if err == nil {
			result.NumberMatched = &count
		}
	}
	return result, nil
}

func (g *GeoPackage) GetFeatureByID(ctx context.Context, ft *xsd.FeatureType, id string) (*domain.Feature, error) {
	table, ok := g.tableByTypeName[ft.QName()]
	if !ok {
		return nil, fmt.Errorf("feature type %s has no backing table in geopackage", ft.QName())
	}

	queryCtx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	idColumn := identityColumn(ft)
	query := fmt.Sprintf("select * from %s f where f.%s = :id limit 1", table.TableName, idColumn)
	stmt, err := g.db.PrepareNamedContext(queryCtx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryxContext(queryCtx, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", query, err)
	}
	defer rows.Close()

	features, _, err := domain.MapRowsToFeatures(rows, ft, readGpkgGeometry)
	if err != nil {
		return nil, err
	}
	if len(features) != 1 {
		return nil, nil //nolint:nilnil
	}
	return features[0], nil
}

func identityColumn(ft *xsd.FeatureType) string {
	if n := ft.GmlIDNode(); n != nil {
		return n.DataSourcePath
	}
	return "fid"
}

// makeFeaturesQuery builds the cursor-paginated SQL for a page of features,
// mirroring gokoala's lag/lead window-function cursor CTE, generalized to a
// compiled predicate clause instead of a fixed bbox-or-nothing branch.
func makeFeaturesQuery(table *featureTable, idColumn string, opt datasources.FeatureOptions) (string, map[string]any, error) {
	args := map[string]any{
		"id":    opt.Cursor.FeatureID,
		"limit": opt.Limit,
	}
	if opt.Cursor.FeatureID == "" {
		args["id"] = minSentinel
	}

	where := fmt.Sprintf("%s >= :id", idColumn)
	if opt.Predicate != nil {
		predSQL, predArgs, err := datasources.RenderPredicate(opt.Predicate, datasources.SpatiaLiteDialect)
		if err != nil {
			return "", nil, err
		}
		where = fmt.Sprintf("(%s) and %s", predSQL, where)
		for k, v := range predArgs {
			args[k] = v
		}
	}

	order := idColumn + " asc"
	if len(opt.SortBy) > 0 {
		parts := make([]string, len(opt.SortBy))
		for i, s := range opt.SortBy {
			dir := "asc"
			if !s.Ascending {
				dir = "desc"
			}
			parts[i] = fmt.Sprintf("%s %s", s.DataSourcePath, dir)
		}
		order = strings.Join(parts, ", ")
	}

	query := fmt.Sprintf(`
with
    filtered as (select * from %[1]s f where %[2]s),
    next as (select * from filtered where %[3]s >= :id order by %[4]s limit :limit + 1),
    prev as (select * from filtered where %[3]s < :id order by %[3]s desc limit :limit),
    nextprev as (select * from next union all select * from prev),
    nextprevfeat as (select *, lag(%[3]s, :limit) over (order by %[3]s) as prevfid, lead(%[3]s, :limit) over (order by %[3]s) as nextfid from nextprev)
select * from nextprevfeat where %[3]s >= :id order by %[4]s limit :limit
`, table.TableName, where, idColumn, order)

	return query, args, nil
}

// minSentinel sorts before any real identity value when no cursor was supplied:
// SQLite orders every INTEGER before every TEXT value, so the smallest int64
// is below both integer and text identity columns.
const minSentinel int64 = -1 << 63

func (g *GeoPackage) countFeatures(ctx context.Context, table *featureTable, idColumn string, opt datasources.FeatureOptions) (int, error) {
	where := "1 = 1"
	args := map[string]any{}
	if opt.Predicate != nil {
		predSQL, predArgs, err := datasources.RenderPredicate(opt.Predicate, datasources.SpatiaLiteDialect)
		if err != nil {
			return 0, err
		}
		where = predSQL
		args = predArgs
	}
	query := fmt.Sprintf("select count(*) from %s f where %s", table.TableName, where)
	stmt, err := g.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int
	rows, err := stmt.QueryxContext(ctx, args)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, err
		}
	}
	_ = idColumn
	return count, nil
}

func readDriverMetadata(db *sqlx.DB) (string, error) {
	type metadata struct {
		Sqlite     string `db:"sqlite"`
		Spatialite string `db:"spatialite"`
		Arch       string `db:"arch"`
	}
	var m metadata
	err := db.QueryRowx(`
select sqlite_version() as sqlite,
spatialite_version() as spatialite,
spatialite_target_cpu() as arch`).StructScan(&m)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sqlite version: %s, spatialite version: %s on %s", m.Sqlite, m.Spatialite, m.Arch), nil
}

func readGpkgContents(db *sqlx.DB) ([]*featureTable, error) {
	query := `
select
	c.table_name, c.identifier, gc.column_name
from
	gpkg_contents c join gpkg_geometry_columns gc on c.table_name == gc.table_name
where
	c.data_type = 'features'`

	rows, err := db.Queryx(query)
	if err != nil {
		return nil, fmt.Errorf("failed to read gpkg_contents: %w", err)
	}
	defer rows.Close()

	var result []*featureTable
	for rows.Next() {
		row := featureTable{}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to read gpkg_contents record: %w", err)
		}
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no records found in gpkg_contents, can't serve features")
	}
	return result, nil
}

func matchFeatureTypesToTables(featureTypes []*xsd.FeatureType, tables []*featureTable) map[xsd.QName]*featureTable {
	byIdentifier := make(map[string]*featureTable, len(tables))
	for _, t := range tables {
		byIdentifier[t.Identifier] = t
	}
	result := make(map[xsd.QName]*featureTable, len(featureTypes))
	for _, ft := range featureTypes {
		if t, ok := byIdentifier[ft.LocalName]; ok {
			result[ft.QName()] = t
			continue
		}
		log.Fatalf("no geopackage table found matching feature type %s", ft.QName())
	}
	return result
}

func (g *GeoPackage) assertIndexExistOnFeatureTables(featureTypes []*xsd.FeatureType) {
	for _, ft := range featureTypes {
		table, ok := g.tableByTypeName[ft.QName()]
		if !ok {
			continue
		}
		idColumn := identityColumn(ft)
		expectedIndexName := table.TableName + "_spatial_idx"
		var actualIndexColumns string

		query := fmt.Sprintf(`select group_concat(name) from pragma_index_info('%s') order by name asc`, expectedIndexName)
		err := g.db.QueryRowx(query).Scan(&actualIndexColumns)
		if err != nil || actualIndexColumns == "" {
			log.Printf("warning: no spatial index %q found on table %q, bbox queries may be slow", expectedIndexName, table.TableName)
			continue
		}
		expected := strings.Join([]string{idColumn, "minx", "maxx", "miny", "maxy"}, ",")
		if expected != actualIndexColumns {
			log.Printf("warning: index %q on table %q has columns %q, expected %q",
				expectedIndexName, table.TableName, actualIndexColumns, expected)
		}
	}
}

func readGpkgGeometry(rawGeom []byte) (geom.Geometry, error) {
	geometry, err := gpkg.DecodeGeometry(rawGeom)
	if err != nil {
		return nil, err
	}
	return geometry.Geometry, nil
}
