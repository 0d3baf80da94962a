package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    DEFINE TABLE IF NOT EXISTS research_task SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS kind ON research_task TYPE string;
    DEFINE FIELD IF NOT EXISTS subjects ON research_task TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS params ON research_task TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS status ON research_task TYPE string;
    DEFINE FIELD IF NOT EXISTS percent_complete ON research_task TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS current_step ON research_task TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS sources_found ON research_task TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS result ON research_task TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS error ON research_task TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS started_at ON research_task TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS completed_at ON research_task TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS research_task_status ON research_task FIELDS status;
`
