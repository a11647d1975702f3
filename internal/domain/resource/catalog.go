package resource

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ParentFilter scopes a list to a parent id, either as a path segment
// (<path>/<param>/<id>) or as a query parameter (?<param>=<id>).
type ParentFilter struct {
	Param  string
	InPath bool
}

// Descriptor describes one CRUD resource of the inventory API.
type Descriptor struct {
	// Name is the resource key used in console URLs.
	Name string
	// Path is the collection path on the API, e.g. /v1/almacenes.
	Path     string
	Parent   *ParentFilter
	Required []string
	// Label is the plural display name used in notifications.
	Label string
}

// ItemPath returns the path of one record.
func (d Descriptor) ItemPath(id int64) string {
	return d.Path + "/" + strconv.FormatInt(id, 10)
}

// ListPath returns the collection path and query for a list request.
// page and size are sent only when size is positive.
func (d Descriptor) ListPath(page, size int, parentID int64) (string, url.Values) {
	path := d.Path
	q := url.Values{}
	if parentID > 0 && d.Parent != nil {
		if d.Parent.InPath {
			path = path + "/" + d.Parent.Param + "/" + strconv.FormatInt(parentID, 10)
		} else {
			q.Set(d.Parent.Param, strconv.FormatInt(parentID, 10))
		}
	}
	if size > 0 {
		q.Set("page", strconv.Itoa(page))
		q.Set("size", strconv.Itoa(size))
	}
	return path, q
}

// Catalog indexes descriptors by name.
type Catalog struct {
	byName map[string]Descriptor
}

// NewCatalog builds a catalog. Paths are joined under prefix.
func NewCatalog(prefix string, descs ...Descriptor) *Catalog {
	prefix = strings.TrimRight(prefix, "/")
	c := &Catalog{byName: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		if !strings.HasPrefix(d.Path, "/") {
			d.Path = "/" + d.Path
		}
		d.Path = prefix + d.Path
		c.byName[d.Name] = d
	}
	return c
}

// Get returns the named descriptor.
func (c *Catalog) Get(name string) (Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Names returns every resource name, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.byName))
	for n := range c.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func inPath(param string) *ParentFilter { return &ParentFilter{Param: param, InPath: true} }
func byQuery(param string) *ParentFilter { return &ParentFilter{Param: param} }

// DefaultCatalog returns the resources of the inventory API under /v1.
func DefaultCatalog() *Catalog {
	return DefaultCatalogAt("/v1")
}

// DefaultCatalogAt returns the default resources under prefix.
func DefaultCatalogAt(prefix string) *Catalog {
	if prefix == "" {
		prefix = "/v1"
	}
	return NewCatalog(prefix,
		Descriptor{Name: "personas", Path: "personas", Label: "personas",
			Required: []string{"nombres", "apellidos", "numeroDocumento"}},
		Descriptor{Name: "usuarios", Path: "usuarios", Label: "usuarios",
			Required: []string{"correo", "personaId"}},
		Descriptor{Name: "empresas", Path: "empresas", Label: "empresas",
			Required: []string{"razonSocial", "nit"}},
		Descriptor{Name: "roles", Path: "roles", Label: "roles",
			Required: []string{"nombre"}},
		Descriptor{Name: "productos", Path: "productos", Label: "productos",
			Parent:   byQuery("categoriaId"),
			Required: []string{"nombre", "categoriaId", "marcaId"}},
		Descriptor{Name: "categorias", Path: "categorias", Label: "categorías",
			Required: []string{"nombre"}},
		Descriptor{Name: "marcas", Path: "marcas", Label: "marcas",
			Required: []string{"nombre"}},
		Descriptor{Name: "paises", Path: "paises", Label: "países",
			Required: []string{"nombre"}},
		Descriptor{Name: "departamentos", Path: "departamentos", Label: "departamentos",
			Parent:   inPath("pais"),
			Required: []string{"nombre", "paisId"}},
		Descriptor{Name: "municipios", Path: "municipios", Label: "municipios",
			Parent:   inPath("departamento"),
			Required: []string{"nombre", "departamentoId"}},
		Descriptor{Name: "sedes", Path: "sedes", Label: "sedes",
			Parent:   inPath("municipio"),
			Required: []string{"nombre", "municipioId"}},
		Descriptor{Name: "bloques", Path: "bloques", Label: "bloques",
			Parent:   inPath("sede"),
			Required: []string{"nombre", "sedeId"}},
		Descriptor{Name: "espacios", Path: "espacios", Label: "espacios",
			Parent:   inPath("bloque"),
			Required: []string{"nombre", "bloqueId"}},
		Descriptor{Name: "almacenes", Path: "almacenes", Label: "almacenes",
			Parent:   inPath("espacio"),
			Required: []string{"nombre", "espacioId"}},
		Descriptor{Name: "ocupaciones", Path: "ocupaciones", Label: "ocupaciones",
			Parent:   byQuery("espacioId"),
			Required: []string{"espacioId", "fechaInicio"}},
		Descriptor{Name: "ordenes-compra", Path: "ordenes-compra", Label: "órdenes de compra",
			Parent:   byQuery("almacenId"),
			Required: []string{"almacenId", "proveedor", "fecha"}},
		Descriptor{Name: "kardex", Path: "kardex", Label: "movimientos de kardex",
			Parent:   byQuery("almacenId"),
			Required: []string{"almacenId", "productoId", "tipoMovimiento", "cantidad"}},
		Descriptor{Name: "items-evaluacion", Path: "items-evaluacion", Label: "ítems de evaluación",
			Required: []string{"nombre"}},
	)
}
