package postgresql

// migrations returns the schema migrations in version order.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS producto_fase_tareas (
				id SERIAL PRIMARY KEY,
				producto_id INTEGER NOT NULL,
				fase_id INTEGER NOT NULL,
				tarea_fase_id INTEGER NOT NULL,
				completada_sn CHAR(1) NOT NULL DEFAULT 'N',
				validada_supervisr_sn CHAR(1) NOT NULL DEFAULT 'N',
				usuario_id INTEGER,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				UNIQUE (producto_id, fase_id, tarea_fase_id)
			);

			CREATE INDEX IF NOT EXISTS idx_producto_fase_tareas_lookup
				ON producto_fase_tareas (producto_id, fase_id);
		`,
	}
}
