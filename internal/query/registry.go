package query

import "fmt"

// tableSpec describes one logical table the generic endpoint may serve.
// Columns maps the JSON field names clients use onto qualified DB columns,
// which doubles as the allowlist: anything not in the map is dropped.
type tableSpec struct {
	From         string
	Columns      map[string]string
	Updatable    map[string]string
	DefaultOrder string
	IDColumn     string
}

// registry holds the logical tables and joins the dashboard queries. The
// pedidos entry carries the cliente join so list rows arrive denormalized.
var registry = map[string]tableSpec{
	"pedidos": {
		From: "pedidos p JOIN clientes c ON c.id = p.cliente_id",
		Columns: map[string]string{
			"id":              "p.id",
			"clienteId":       "p.cliente_id",
			"sucursalId":      "p.sucursal_id",
			"usuarioId":       "p.usuario_id",
			"status":          "p.status",
			"tipo":            "p.tipo",
			"articulos":       "p.articulos",
			"programadoPara":  "p.programado_para",
			"createdAt":       "p.created_at",
			"updatedAt":       "p.updated_at",
			"clienteNombre":   "c.nombre",
			"clienteTelefono": "c.telefono",
			"clienteEmail":    "c.email",
		},
		Updatable: map[string]string{
			"status":    "status",
			"articulos": "articulos",
			"tipo":      "tipo",
		},
		DefaultOrder: "p.created_at DESC",
		IDColumn:     "p.id",
	},
	"articulos": {
		From: "articulos",
		Columns: map[string]string{
			"id":            "id",
			"codigo":        "codigo",
			"nombre":        "nombre",
			"categoria":     "categoria",
			"unidad":        "unidad",
			"precio":        "precio",
			"precioRegular": "precio_regular",
			"factor":        "factor",
			"existencia":    "existencia",
			"updatedAt":     "updated_at",
		},
		Updatable: map[string]string{
			"nombre":        "nombre",
			"categoria":     "categoria",
			"unidad":        "unidad",
			"precio":        "precio",
			"precioRegular": "precio_regular",
			"factor":        "factor",
			"existencia":    "existencia",
		},
		DefaultOrder: "nombre ASC",
		IDColumn:     "id",
	},
	"empleados": {
		From: "empleados",
		Columns: map[string]string{
			"id":         "id",
			"nombre":     "nombre",
			"puesto":     "puesto",
			"sucursalId": "sucursal_id",
			"email":      "email",
			"updatedAt":  "updated_at",
		},
		Updatable: map[string]string{
			"nombre":     "nombre",
			"puesto":     "puesto",
			"sucursalId": "sucursal_id",
			"email":      "email",
		},
		DefaultOrder: "nombre ASC",
		IDColumn:     "id",
	},
	"clientes": {
		From: "clientes",
		Columns: map[string]string{
			"id":        "id",
			"nombre":    "nombre",
			"telefono":  "telefono",
			"email":     "email",
			"updatedAt": "updated_at",
		},
		Updatable: map[string]string{
			"nombre":   "nombre",
			"telefono": "telefono",
			"email":    "email",
		},
		DefaultOrder: "nombre ASC",
		IDColumn:     "id",
	},
	"polizas": {
		From: "polizas",
		Columns: map[string]string{
			"id":        "id",
			"concepto":  "concepto",
			"cuenta":    "cuenta",
			"cargo":     "cargo",
			"abono":     "abono",
			"fecha":     "fecha",
			"updatedAt": "updated_at",
		},
		Updatable: map[string]string{
			"concepto": "concepto",
			"cuenta":   "cuenta",
			"cargo":    "cargo",
			"abono":    "abono",
			"fecha":    "fecha",
		},
		DefaultOrder: "fecha DESC",
		IDColumn:     "id",
	},
}

func specFor(tabla string) (tableSpec, error) {
	spec, ok := registry[tabla]
	if !ok {
		return tableSpec{}, fmt.Errorf("%w: %s", ErrUnknownTable, tabla)
	}
	return spec, nil
}
