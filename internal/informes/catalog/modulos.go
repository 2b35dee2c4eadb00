package catalog

// ModuleSpec declaración de un módulo con sus colecciones
type ModuleSpec struct {
	Module      Module
	Collections []CollectionSpec
}

// CollectionSpec declaración de una colección consultable
type CollectionSpec struct {
	Name   string
	Fields []FieldSpec
}

// FieldSpec declaración de un campo. Los operadores se derivan del tipo.
type FieldSpec struct {
	Path         string
	Label        string
	Type         FieldType
	Aggregatable bool
	EnumValues   []string
}

func text(path, label string) FieldSpec {
	return FieldSpec{Path: path, Label: label, Type: TypeString}
}

func number(path, label string) FieldSpec {
	return FieldSpec{Path: path, Label: label, Type: TypeNumber, Aggregatable: true}
}

func date(path, label string) FieldSpec {
	return FieldSpec{Path: path, Label: label, Type: TypeDate, Aggregatable: true}
}

func boolean(path, label string) FieldSpec {
	return FieldSpec{Path: path, Label: label, Type: TypeBoolean}
}

func ref(path, label string) FieldSpec {
	return FieldSpec{Path: path, Label: label, Type: TypeReference}
}

func enum(path, label string, values ...string) FieldSpec {
	return FieldSpec{Path: path, Label: label, Type: TypeEnum, EnumValues: values}
}

// countable identificador del documento, agregable solo con count
func countable(path, label string) FieldSpec {
	return FieldSpec{Path: path, Label: label, Type: TypeReference, Aggregatable: true}
}

func standardModules() []ModuleSpec {
	return []ModuleSpec{
		{
			Module: ModuloVentas,
			Collections: []CollectionSpec{
				{
					Name: "facturas",
					Fields: []FieldSpec{
						countable("_id", "Nº de facturas"),
						text("codigo", "Código"),
						text("serie", "Serie"),
						date("fecha", "Fecha"),
						date("fechaVencimiento", "Fecha de vencimiento"),
						ref("clienteId", "Cliente"),
						text("clienteNombre", "Nombre del cliente"),
						text("cliente.nombre", "Cliente (nombre)"),
						text("cliente.nif", "Cliente (NIF)"),
						text("cliente.provincia", "Cliente (provincia)"),
						ref("agenteComercialId", "Agente comercial"),
						enum("estado", "Estado", "borrador", "emitida", "cobrada", "vencida", "anulada"),
						boolean("cobrada", "Cobrada"),
						number("totales.baseImponible", "Base imponible"),
						number("totales.totalIva", "Total IVA"),
						number("totales.totalFactura", "Total factura"),
						number("totales.pendienteCobro", "Pendiente de cobro"),
					},
				},
				{
					Name: "pedidos",
					Fields: []FieldSpec{
						countable("_id", "Nº de pedidos"),
						text("codigo", "Código"),
						date("fecha", "Fecha"),
						date("fechaEntrega", "Fecha de entrega"),
						ref("clienteId", "Cliente"),
						text("clienteNombre", "Nombre del cliente"),
						enum("estado", "Estado", "pendiente", "en_proceso", "servido", "cancelado"),
						enum("prioridad", "Prioridad", "baja", "media", "alta"),
						number("totales.totalPedido", "Total pedido"),
					},
				},
			},
		},
		{
			Module: ModuloCompras,
			Collections: []CollectionSpec{
				{
					Name: "facturas_compra",
					Fields: []FieldSpec{
						countable("_id", "Nº de facturas"),
						text("codigo", "Código"),
						text("numeroFacturaProveedor", "Nº factura proveedor"),
						date("fecha", "Fecha"),
						ref("proveedorId", "Proveedor"),
						text("proveedorNombre", "Nombre del proveedor"),
						text("proveedor.nombre", "Proveedor (nombre)"),
						enum("estado", "Estado", "pendiente", "pagada", "vencida", "anulada"),
						boolean("pagada", "Pagada"),
						number("totales.baseImponible", "Base imponible"),
						number("totales.totalIva", "Total IVA"),
						number("totales.totalFactura", "Total factura"),
					},
				},
				{
					Name: "pedidos_compra",
					Fields: []FieldSpec{
						countable("_id", "Nº de pedidos"),
						text("codigo", "Código"),
						date("fecha", "Fecha"),
						text("proveedorNombre", "Nombre del proveedor"),
						enum("estado", "Estado", "borrador", "enviado", "recibido", "cancelado"),
						number("totales.totalPedido", "Total pedido"),
					},
				},
			},
		},
		{
			Module: ModuloClientes,
			Collections: []CollectionSpec{
				{
					Name: "clientes",
					Fields: []FieldSpec{
						countable("_id", "Nº de clientes"),
						text("codigo", "Código"),
						text("nombre", "Nombre"),
						text("nif", "NIF"),
						enum("tipoCliente", "Tipo", "particular", "empresa"),
						boolean("activo", "Activo"),
						text("direccion.ciudad", "Ciudad"),
						text("direccion.provincia", "Provincia"),
						ref("formaPagoId", "Forma de pago"),
						number("riesgoMaximo", "Riesgo máximo"),
						number("riesgoActual", "Riesgo actual"),
						date("fechaAlta", "Fecha de alta"),
					},
				},
			},
		},
		{
			Module: ModuloProductos,
			Collections: []CollectionSpec{
				{
					Name: "productos",
					Fields: []FieldSpec{
						countable("_id", "Nº de productos"),
						text("sku", "SKU"),
						text("nombre", "Nombre"),
						text("familia.nombre", "Familia"),
						boolean("activo", "Activo"),
						number("precios.venta", "Precio de venta"),
						number("precios.compra", "Precio de compra"),
						number("stock.actual", "Stock actual"),
						number("stock.minimo", "Stock mínimo"),
						date("fechaCreacion", "Fecha de creación"),
					},
				},
			},
		},
		{
			Module: ModuloTesoreria,
			Collections: []CollectionSpec{
				{
					Name: "movimientos_tesoreria",
					Fields: []FieldSpec{
						countable("_id", "Nº de movimientos"),
						date("fecha", "Fecha"),
						enum("tipo", "Tipo", "cobro", "pago"),
						text("concepto", "Concepto"),
						text("cuentaBancaria", "Cuenta bancaria"),
						number("importe", "Importe"),
						boolean("conciliado", "Conciliado"),
					},
				},
			},
		},
	}
}
