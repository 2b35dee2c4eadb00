// Package plantillas contiene las definiciones predefinidas que se siembran en cada tenant.
package plantillas

import (
	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/models"
)

// Plantilla definición predefinida; (Modulo, Nombre) la identifica dentro de un tenant
type Plantilla struct {
	Nombre      string
	Descripcion string
	Spec        models.InformeSpec
}

func sum(campo string) models.CampoSeleccionado {
	return models.CampoSeleccionado{Campo: campo, Agregacion: catalog.AggSum}
}

func count(alias string) models.CampoSeleccionado {
	return models.CampoSeleccionado{Campo: "_id", Agregacion: catalog.AggCount, Alias: alias}
}

func campo(path string) models.CampoSeleccionado {
	return models.CampoSeleccionado{Campo: path}
}

func mensual(path string) models.CampoSeleccionado {
	return models.CampoSeleccionado{Campo: path, Granularidad: models.GranularidadMes, Alias: "mes"}
}

// All devuelve una copia de todas las plantillas
func All() []Plantilla {
	out := make([]Plantilla, 0, len(plantillas))
	for _, p := range plantillas {
		p.Spec = p.Spec.Clone()
		out = append(out, p)
	}
	return out
}

// ForModule plantillas de un módulo
func ForModule(m catalog.Module) []Plantilla {
	var out []Plantilla
	for _, p := range All() {
		if p.Spec.Modulo == m {
			out = append(out, p)
		}
	}
	return out
}

var plantillas = []Plantilla{
	{
		Nombre:      "Facturación mensual",
		Descripcion: "Total facturado y número de facturas por mes",
		Spec: models.InformeSpec{
			Modulo:        catalog.ModuloVentas,
			ColeccionBase: "facturas",
			Campos:        []models.CampoSeleccionado{mensual("fecha"), sum("totales.totalFactura"), count("numFacturas")},
			Filtros: []models.Filtro{
				{Campo: "estado", Operador: catalog.OpNotEquals, Valor: "anulada"},
			},
			Agrupacion:  []string{"mes"},
			Ordenacion:  []models.Orden{{Campo: "mes", Direccion: models.DireccionAsc}},
			TipoGrafico: models.TipoGraficoBarras,
		},
	},
	{
		Nombre:      "Ventas por cliente",
		Descripcion: "Importe facturado por cliente, de mayor a menor",
		Spec: models.InformeSpec{
			Modulo:        catalog.ModuloVentas,
			ColeccionBase: "facturas",
			Campos:        []models.CampoSeleccionado{campo("clienteNombre"), sum("totales.totalFactura"), count("numFacturas")},
			Agrupacion:    []string{"clienteNombre"},
			Ordenacion:    []models.Orden{{Campo: "totales.totalFactura", Direccion: models.DireccionDesc}},
			TipoGrafico:   models.TipoGraficoSectores,
		},
	},
	{
		Nombre:      "Facturas pendientes de cobro",
		Descripcion: "Facturas emitidas o vencidas sin cobrar",
		Spec: models.InformeSpec{
			Modulo:        catalog.ModuloVentas,
			ColeccionBase: "facturas",
			Campos: []models.CampoSeleccionado{
				campo("codigo"), campo("fecha"), campo("clienteNombre"),
				campo("estado"), campo("totales.pendienteCobro"),
			},
			Filtros: []models.Filtro{
				{Campo: "estado", Operador: catalog.OpIn, Valores: []interface{}{"emitida", "vencida"}},
				{Campo: "totales.pendienteCobro", Operador: catalog.OpGt, Valor: 0},
			},
			Ordenacion:  []models.Orden{{Campo: "fecha", Direccion: models.DireccionAsc}},
			TipoGrafico: models.TipoGraficoTabla,
		},
	},
	{
		Nombre:      "Pedidos por estado",
		Descripcion: "Número e importe de pedidos de venta por estado",
		Spec: models.InformeSpec{
			Modulo:        catalog.ModuloVentas,
			ColeccionBase: "pedidos",
			Campos:        []models.CampoSeleccionado{campo("estado"), count("numPedidos"), sum("totales.totalPedido")},
			Agrupacion:    []string{"estado"},
			TipoGrafico:   models.TipoGraficoBarras,
		},
	},
	{
		Nombre:      "Compras por proveedor",
		Descripcion: "Importe comprado por proveedor",
		Spec: models.InformeSpec{
			Modulo:        catalog.ModuloCompras,
			ColeccionBase: "facturas_compra",
			Campos:        []models.CampoSeleccionado{campo("proveedorNombre"), sum("totales.totalFactura")},
			Filtros: []models.Filtro{
				{Campo: "estado", Operador: catalog.OpNotEquals, Valor: "anulada"},
			},
			Agrupacion:  []string{"proveedorNombre"},
			Ordenacion:  []models.Orden{{Campo: "totales.totalFactura", Direccion: models.DireccionDesc}},
			TipoGrafico: models.TipoGraficoBarras,
		},
	},
	{
		Nombre:      "Clientes por provincia",
		Descripcion: "Clientes activos agrupados por provincia",
		Spec: models.InformeSpec{
			Modulo:        catalog.ModuloClientes,
			ColeccionBase: "clientes",
			Campos:        []models.CampoSeleccionado{campo("direccion.provincia"), count("numClientes")},
			Filtros: []models.Filtro{
				{Campo: "activo", Operador: catalog.OpEquals, Valor: true},
			},
			Agrupacion:  []string{"direccion.provincia"},
			TipoGrafico: models.TipoGraficoSectores,
		},
	},
	{
		Nombre:      "Productos bajo stock mínimo",
		Descripcion: "Productos activos con stock por debajo del mínimo",
		Spec: models.InformeSpec{
			Modulo:        catalog.ModuloProductos,
			ColeccionBase: "productos",
			Campos: []models.CampoSeleccionado{
				campo("sku"), campo("nombre"), campo("stock.actual"), campo("stock.minimo"),
			},
			Filtros: []models.Filtro{
				{Campo: "activo", Operador: catalog.OpEquals, Valor: true},
				{Campo: "stock.actual", Operador: catalog.OpLt, Valor: 5},
			},
			Ordenacion:  []models.Orden{{Campo: "stock.actual", Direccion: models.DireccionAsc}},
			TipoGrafico: models.TipoGraficoTabla,
		},
	},
	{
		Nombre:      "Cobros y pagos mensuales",
		Descripcion: "Importe de movimientos de tesorería por mes y tipo",
		Spec: models.InformeSpec{
			Modulo:        catalog.ModuloTesoreria,
			ColeccionBase: "movimientos_tesoreria",
			Campos:        []models.CampoSeleccionado{mensual("fecha"), campo("tipo"), sum("importe")},
			Agrupacion:    []string{"mes", "tipo"},
			Ordenacion:    []models.Orden{{Campo: "mes", Direccion: models.DireccionAsc}},
			TipoGrafico:   models.TipoGraficoLineas,
		},
	},
}
