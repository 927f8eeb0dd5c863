package pkg

// ModuleName tags log lines written by the agents module.
const ModuleName = "agents"
