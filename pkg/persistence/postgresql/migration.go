package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				site_id VARCHAR(255) NOT NULL,
				account_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'paused')),
				nodes JSONB NOT NULL DEFAULT '[]',
				connections JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_site_status ON workflows(site_id, status);
			CREATE INDEX idx_workflows_account ON workflows(account_id);
		`,
		2: `
			CREATE TABLE execution_events (
				id UUID PRIMARY KEY,
				site_id VARCHAR(255) NOT NULL,
				workflow_id UUID NOT NULL,
				visitor_id VARCHAR(255) NOT NULL,
				run_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				node_name VARCHAR(255) NOT NULL DEFAULT '',
				node_type VARCHAR(100) NOT NULL,
				kind VARCHAR(20) NOT NULL,
				step_order INTEGER NOT NULL DEFAULT 0,
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
				success BOOLEAN NOT NULL,
				detail TEXT NOT NULL DEFAULT '',
				execution_time_ms BIGINT NOT NULL DEFAULT 0,
				payload JSONB
			);

			CREATE INDEX idx_execution_events_workflow_ts ON execution_events(workflow_id, timestamp);
			CREATE INDEX idx_execution_events_site_visitor ON execution_events(site_id, visitor_id);
			CREATE INDEX idx_execution_events_run ON execution_events(run_id);
			CREATE INDEX idx_execution_events_ts ON execution_events(timestamp);
		`,
	}
}
